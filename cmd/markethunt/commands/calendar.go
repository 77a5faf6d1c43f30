package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/markethunt/backend/internal/calendar"
	"github.com/wonny/markethunt/backend/internal/rebalance"
	"github.com/wonny/markethunt/backend/internal/tradingdays"
	"github.com/wonny/markethunt/backend/pkg/config"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

// calendarCmd represents the calendar command
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "리밸런싱 캘린더",
	Long: `거래일로부터 리밸런싱 날짜를 생성합니다.

Subcommands:
  generate   - 리밸런싱 날짜 생성`,
}

var (
	calendarGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "리밸런싱 날짜 생성",
		Long: `거래일을 주기별로 묶고 각 구간에서 하나의 날짜를 선택합니다.

거래일 출처:
  --dates-file  YYYY-MM-DD 목록 파일 (JSON 배열, 한 줄에 하나, CSV 첫 컬럼)
  (기본)        PostgreSQL data.daily_prices + Redis 캐시

Flags:
  --frequency   weekly | monthly | quarterly | yearly (기본: REBALANCE_FREQUENCY)
  --date        first | mid | last (기본: REBALANCE_DATE)
  --from, --to  기간 (YYYY-MM-DD, DB 기본: 마지막 거래일까지 1년)
  --json        JSON 출력

Example:
  go run ./cmd/markethunt calendar generate --frequency monthly --date first
  go run ./cmd/markethunt calendar generate --dates-file krx_2025.txt --frequency weekly --date mid
  go run ./cmd/markethunt calendar generate --from 2024-01-01 --to 2024-12-31 --json`,
		RunE: runCalendarGenerate,
	}

	// Flags
	calFrequency string
	calDate      string
	calFrom      string
	calTo        string
	calDatesFile string
	calJSON      bool
)

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarGenerateCmd)

	// Flags
	calendarGenerateCmd.Flags().StringVar(&calFrequency, "frequency", "", "리밸런싱 주기 (weekly|monthly|quarterly|yearly)")
	calendarGenerateCmd.Flags().StringVar(&calDate, "date", "", "날짜 선택 규칙 (first|mid|last)")
	calendarGenerateCmd.Flags().StringVar(&calFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	calendarGenerateCmd.Flags().StringVar(&calTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	calendarGenerateCmd.Flags().StringVar(&calDatesFile, "dates-file", "", "거래일 목록 파일 (DB 대신 사용)")
	calendarGenerateCmd.Flags().BoolVar(&calJSON, "json", false, "JSON 출력")
}

func runCalendarGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	from, to, err := parseRange(calFrom, calTo)
	if err != nil {
		return err
	}

	// 1. Load config (the price store is optional with --dates-file)
	var cfg *config.Config
	if calDatesFile != "" {
		cfg, err = config.LoadLocal()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := newCLILogger(cfg)

	// 3. Resolve frequency / policy
	freq, policy, err := resolveSelection(cfg, calFrequency, calDate)
	if err != nil {
		return err
	}

	// 4. Generate
	var schedule *rebalance.Schedule
	if calDatesFile != "" {
		schedule, err = scheduleFromFile(ctx, calDatesFile, from, to, freq, policy, log)
	} else {
		schedule, err = scheduleFromStore(ctx, cfg, from, to, freq, policy, log)
	}
	if err != nil {
		return err
	}

	// 5. Print
	out := cmd.OutOrStdout()
	if calJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(schedule)
	}
	printSchedule(out, schedule)
	return nil
}

// scheduleFromFile builds a schedule over a local trading date list.
// Zero from/to leave that side of the range open.
func scheduleFromFile(ctx context.Context, path string, from, to time.Time, freq calendar.Frequency, policy calendar.SelectionPolicy, log *logger.Logger) (*rebalance.Schedule, error) {
	src, err := tradingdays.LoadFile(path)
	if err != nil {
		return nil, err
	}

	dates, err := src.TradingDates(ctx, from, to)
	if err != nil {
		return nil, err
	}

	schedule, err := rebalance.NewService(src, log).FromDates(dates, freq, policy)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() {
		schedule.From = calendar.FormatDate(from)
	}
	if !to.IsZero() {
		schedule.To = calendar.FormatDate(to)
	}
	return schedule, nil
}

// scheduleFromStore builds a schedule over the price store. Without --to the
// range ends at the latest stored trading date; without --from it spans one year.
func scheduleFromStore(ctx context.Context, cfg *config.Config, from, to time.Time, freq calendar.Frequency, policy calendar.SelectionPolicy, log *logger.Logger) (*rebalance.Schedule, error) {
	st, err := openStore(ctx, cfg, "", log)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if to.IsZero() {
		_, latest, err := st.repo.Bounds(ctx)
		if err != nil {
			return nil, fmt.Errorf("latest trading date: %w", err)
		}
		to = latest
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}

	return rebalance.NewService(st.source, log).Schedule(ctx, rebalance.Request{
		From:      from,
		To:        to,
		Frequency: freq,
		Policy:    policy,
	})
}

// printSchedule renders the per-period table and the selected dates
func printSchedule(w io.Writer, schedule *rebalance.Schedule) {
	PrintHeader(w, fmt.Sprintf("Rebalance Calendar (%s / %s)", schedule.Frequency, schedule.Policy))

	from, to := schedule.From, schedule.To
	if n := len(schedule.Periods); n > 0 {
		if from == "" {
			from = calendar.FormatDate(schedule.Periods[0].Dates[0])
		}
		if to == "" {
			last := schedule.Periods[n-1].Dates
			to = calendar.FormatDate(last[len(last)-1])
		}
	}
	if from != "" || to != "" {
		PrintKeyValue(w, "Range", from+" ~ "+to, 12)
	}
	PrintKeyValue(w, "Trading days", strconv.Itoa(schedule.TradingDays), 12)
	PrintKeyValue(w, "Periods", strconv.Itoa(len(schedule.Periods)), 12)
	PrintSeparator(w)

	if len(schedule.Periods) == 0 {
		PrintWarning(w, "No trading dates: nothing to rebalance")
		return
	}

	widths := []int{10, 12, 10}
	PrintTableHeader(w, []string{"PERIOD", "TRADING DAYS", "SELECTED"}, widths)
	for _, p := range schedule.Periods {
		PrintTableRow(w, []string{p.Key.String(), strconv.Itoa(p.TradingDays()), calendar.FormatDate(p.Selected)}, widths)
	}
	PrintSeparator(w)

	PrintSuccess(w, fmt.Sprintf("%d rebalance dates", schedule.Dates.Len()))
	for _, d := range schedule.Dates.Strings() {
		fmt.Fprintln(w, d)
	}
}
