package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/markethunt/backend/internal/backtest"
	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/simconfig"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/config"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "리밸런싱 리플레이",
	Long: `과거 거래일을 하루씩 재생하며 리밸런싱 날짜마다 리밸런서를 호출합니다.

Example:
  go run ./cmd/markethunt backtest replay --from 2023-01-01 --to 2023-12-31 --frequency quarterly --date last
  go run ./cmd/markethunt backtest replay --config simulations/q_last.yaml`,
}

var (
	backtestReplayCmd = &cobra.Command{
		Use:   "replay",
		Short: "리플레이 실행",
		Long: `지정된 기간 동안 리밸런싱 리플레이를 실행합니다.

Flags:
  --from        시작 날짜 (YYYY-MM-DD, --config 없으면 필수)
  --to          종료 날짜 (YYYY-MM-DD, 기본: 오늘)
  --frequency   weekly | monthly | quarterly | yearly (기본: REBALANCE_FREQUENCY)
  --date        first | mid | last (기본: REBALANCE_DATE)
  --config      시뮬레이션 YAML 파일 (기간/주기/기준 종목)
  --dates-file  DB 대신 사용할 거래일 목록 파일`,
		RunE: runBacktestReplay,
	}

	// Flags
	backtestFrom      string
	backtestTo        string
	backtestFrequency string
	backtestDate      string
	backtestConfig    string
	backtestDatesFile string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestReplayCmd)

	// Flags
	backtestReplayCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	backtestReplayCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	backtestReplayCmd.Flags().StringVar(&backtestFrequency, "frequency", "", "리밸런싱 주기")
	backtestReplayCmd.Flags().StringVar(&backtestDate, "date", "", "날짜 선택 규칙")
	backtestReplayCmd.Flags().StringVar(&backtestConfig, "config", "", "시뮬레이션 YAML 파일")
	backtestReplayCmd.Flags().StringVar(&backtestDatesFile, "dates-file", "", "거래일 목록 파일 (DB 대신 사용)")

	backtestReplayCmd.MarkFlagsMutuallyExclusive("config", "from")
	backtestReplayCmd.MarkFlagsMutuallyExclusive("config", "frequency")
	backtestReplayCmd.MarkFlagsMutuallyExclusive("config", "date")
}

// replayPlan is the resolved input of one replay
type replayPlan struct {
	Config     backtest.Config
	Code       string // trading calendar stock code override
	ConfigHash string // set when loaded from --config
	SimID      string
}

func runBacktestReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// 1. Load config
	var cfg *config.Config
	var err error
	if backtestDatesFile != "" {
		cfg, err = config.LoadLocal()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := newCLILogger(cfg)

	// 3. Resolve the replay plan
	plan, err := resolvePlan(cfg, time.Now())
	if err != nil {
		return err
	}

	// 4. Trading date source
	var source tradingdays.Source
	if backtestDatesFile != "" {
		source, err = tradingdays.LoadFile(backtestDatesFile)
		if err != nil {
			return err
		}
	} else {
		st, err := openStore(ctx, cfg, plan.Code, log)
		if err != nil {
			return err
		}
		defer st.Close()
		source = st.source
	}

	// 5. Replay
	printPlan(out, plan)

	engine := backtest.NewEngine(source, loggingRebalancer(out), log)
	result, err := engine.Run(ctx, plan.Config)
	if err != nil && result == nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	printReplayResult(out, result)
	return err
}

// resolvePlan builds the replay input from --config or from the flags
func resolvePlan(cfg *config.Config, now time.Time) (*replayPlan, error) {
	if backtestConfig != "" {
		sim, _, err := simconfig.Load(backtestConfig)
		if err != nil {
			return nil, fmt.Errorf("load simulation config: %w", err)
		}
		hash, err := simconfig.Hash(sim)
		if err != nil {
			return nil, err
		}
		return &replayPlan{
			Config: backtest.Config{
				StartDate: sim.StartDate(),
				EndDate:   sim.EndDate(),
				Frequency: sim.Rebalance.Frequency,
				Policy:    sim.Rebalance.Date,
			},
			Code:       sim.Calendar.Code,
			ConfigHash: hash,
			SimID:      sim.Meta.SimulationID,
		}, nil
	}

	if backtestFrom == "" {
		return nil, fmt.Errorf("--from or --config is required")
	}
	from, to, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = calendar.Date(now)
	}

	freq, policy, err := resolveSelection(cfg, backtestFrequency, backtestDate)
	if err != nil {
		return nil, err
	}

	return &replayPlan{
		Config: backtest.Config{
			StartDate: from,
			EndDate:   to,
			Frequency: freq,
			Policy:    policy,
		},
	}, nil
}

// loggingRebalancer prints every rebalance the replay triggers
func loggingRebalancer(w io.Writer) backtest.Rebalancer {
	return backtest.RebalancerFunc(func(_ context.Context, date time.Time, info backtest.RebalanceInfo) error {
		fmt.Fprintf(w, "[Rebalance] %s  %-8s  day %d/%d [%d/%d]\n",
			calendar.FormatDate(date), info.Period, info.TradingDay+1, info.TradingDays, info.Index+1, info.Total)
		return nil
	})
}

func printPlan(w io.Writer, plan *replayPlan) {
	c := plan.Config
	PrintHeader(w, "Rebalance Replay")
	if plan.SimID != "" {
		PrintKeyValue(w, "Simulation", plan.SimID, 10)
		PrintKeyValue(w, "Hash", plan.ConfigHash[:12], 10)
	}
	PrintKeyValue(w, "Period", calendar.FormatDate(c.StartDate)+" ~ "+calendar.FormatDate(c.EndDate), 10)
	PrintKeyValue(w, "Frequency", c.Frequency.String(), 10)
	PrintKeyValue(w, "Date", c.Policy.String(), 10)
	if plan.Code != "" {
		PrintKeyValue(w, "Calendar", plan.Code, 10)
	}
	PrintSeparator(w)
}

func printReplayResult(w io.Writer, result *backtest.Result) {
	PrintSeparator(w)
	PrintKeyValue(w, "Trading days", strconv.Itoa(result.TradingDays), 12)
	PrintKeyValue(w, "Rebalances", fmt.Sprintf("%d / %d", result.RebalanceCount, len(result.RebalanceDates)), 12)
	PrintKeyValue(w, "Duration", fmt.Sprintf("%.3fs", result.Duration.Seconds()), 12)

	if len(result.Failed) > 0 {
		PrintWarning(w, fmt.Sprintf("%d rebalances failed", len(result.Failed)))
		for _, f := range result.Failed {
			fmt.Fprintf(w, "  %s: %s\n", calendar.FormatDate(f.Date), f.Error)
		}
		return
	}
	if result.TradingDays == 0 {
		PrintWarning(w, "No trading dates in period")
		return
	}
	PrintSuccess(w, "Replay completed")
}
