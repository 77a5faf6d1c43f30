package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "markethunt",
	Short: "MarketHunt - 리밸런싱 캘린더 생성기",
	Long: `MarketHunt Rebalance Calendar CLI

거래일 목록을 주/월/분기/연 단위로 묶고
각 구간에서 첫째/중간/마지막 거래일을 리밸런싱 날짜로 선택합니다.

Usage:
  go run ./cmd/markethunt [command]

Examples:
  go run ./cmd/markethunt calendar generate --frequency monthly --date first
  go run ./cmd/markethunt api
  go run ./cmd/markethunt backtest replay --from 2024-01-01 --to 2024-12-31`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// SIGINT/SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs on stderr)")
}
