package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/markethunt/backend/internal/scheduler"
	"github.com/wonny/markethunt/backend/internal/scheduler/jobs"
	"github.com/wonny/markethunt/backend/pkg/config"
	"github.com/wonny/markethunt/backend/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05"

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `백그라운드 작업을 조회하거나 실행합니다.

Subcommands:
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)
  start   - API 없이 스케줄러만 실행

Example:
  go run ./cmd/markethunt scheduler list
  go run ./cmd/markethunt scheduler run trading_dates_warm
  go run ./cmd/markethunt scheduler start`,
}

var (
	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		Args:  cobra.NoArgs,
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `등록된 작업을 스케줄대로 실행합니다. Ctrl+C로 종료하면 실행 통계를 출력합니다.

등록되는 작업:
  trading_dates_warm  - 평일 18:30 거래일 캐시 갱신`,
		Args: cobra.NoArgs,
		RunE: runSchedulerStart,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
}

// newScheduler registers every background job
// ⭐ SSOT: 작업 등록은 이 함수에서만
func newScheduler(source jobs.Warmer, log *logger.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewTradingDatesWarmJob(source, log)); err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}
	return sched, nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadLocal()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// list never runs a job, so no store is needed
	sched, err := newScheduler(nil, newCLILogger(cfg))
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	return printJobs(cmd.OutOrStdout(), sched)
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jobName := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newCLILogger(cfg)

	st, err := openStore(ctx, cfg, "", log)
	if err != nil {
		return err
	}
	defer st.Close()

	sched, err := newScheduler(st.source, log)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Running job: %s\n", jobName)

	result, err := sched.RunJobNow(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	printJobResult(w, result)

	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	return nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	st, err := openStore(ctx, cfg, "", log)
	if err != nil {
		return err
	}
	defer st.Close()

	sched, err := newScheduler(st.source, log)
	if err != nil {
		return err
	}
	sched.Start()

	w := cmd.OutOrStdout()
	PrintSuccess(w, "Scheduler started")
	if err := printJobs(w, sched); err != nil {
		sched.Stop()
		return err
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(w, "\nShutting down scheduler...")
	sched.Stop()
	printJobStats(w, sched.GetJobStats())

	return nil
}

// printJobs lists every job with its schedule and next run. The scheduler must be started.
func printJobs(w io.Writer, sched *scheduler.Scheduler) error {
	stats := sched.GetJobStats()
	widths := []int{20, 22, 19}

	PrintHeader(w, "Registered Jobs")
	PrintTableHeader(w, []string{"Job", "Schedule", "Next Run"}, widths)
	for _, name := range sched.GetAllJobs() {
		next, err := sched.NextRun(name)
		if err != nil {
			return err
		}
		nextRun := "-"
		if !next.IsZero() {
			nextRun = next.Format(timeLayout)
		}
		PrintTableRow(w, []string{name, stats[name].Schedule, nextRun}, widths)
	}

	return nil
}

func printJobResult(w io.Writer, result scheduler.JobResult) {
	status := "success"
	if !result.Success {
		status = "failed"
	}

	PrintKeyValue(w, "Status", status, 10)
	PrintKeyValue(w, "Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	PrintKeyValue(w, "Duration", fmt.Sprintf("%.3fs", result.Duration.Seconds()), 10)
	if result.Error != "" {
		PrintWarning(w, result.Error)
	}
}

// printJobStats prints per-job run statistics, sorted by job name
func printJobStats(w io.Writer, stats map[string]scheduler.JobStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	PrintHeader(w, "Job Statistics")
	for _, name := range names {
		stat := stats[name]
		fmt.Fprintf(w, "📊 %s\n", name)
		fmt.Fprintf(w, "   Schedule: %s\n", stat.Schedule)
		fmt.Fprintf(w, "   Total Runs: %d\n", stat.TotalRuns)
		fmt.Fprintf(w, "   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Fprintf(w, "   Failures: %d\n", stat.FailureCount)

		if stat.LastSuccess != nil {
			fmt.Fprintf(w, "   Last Success: %s\n", stat.LastSuccess.Format(timeLayout))
		}
		if stat.LastFailure != nil {
			fmt.Fprintf(w, "   Last Failure: %s\n", stat.LastFailure.Format(timeLayout))
		}
		fmt.Fprintln(w)
	}
}
