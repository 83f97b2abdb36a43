// Package main provides the revlog-load CLI, which feeds a synthetic review
// log to a recall server and verifies its retention report.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/recall/internal/domain/daybound"
	"github.com/okian/recall/internal/domain/types"
	"github.com/okian/recall/internal/loadgen"
	"github.com/okian/recall/pkg/logger"
)

const (
	defaultURL      = "http://localhost:9080"
	defaultEvents   = 10000
	defaultCards    = 500
	defaultDays     = 400
	defaultDupShare = 0.05
	defaultTimeout  = 30 * time.Second
	defaultSettle   = 30 * time.Second
	defaultTZ       = "UTC"
	defaultRollover = 4
)

var (
	runURL     string
	runWorkers int
	runTimeout time.Duration
	runSettle  time.Duration
	runDups    float64
	runVerbose bool

	genEvents   int
	genCards    int
	genDays     int
	genSeed     int64
	genNDS      int64
	genTimezone string
	genRollover int
	genOutput   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "revlog-load",
		Short:        "Submit a synthetic review log and verify the retention report",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runLoadCmd,
	}

	addGeneratorFlags(rootCmd)
	rootCmd.Flags().StringVar(&runURL, "url", defaultURL, "base URL of the service")
	rootCmd.Flags().IntVar(&runWorkers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	rootCmd.Flags().DurationVar(&runTimeout, "timeout", defaultTimeout, "HTTP request timeout")
	rootCmd.Flags().DurationVar(&runSettle, "settle", defaultSettle, "how long to wait for the report to match")
	rootCmd.Flags().Float64Var(&runDups, "duplicates", defaultDupShare, "share of events submitted twice (0-1)")
	rootCmd.Flags().BoolVar(&runVerbose, "verbose", false, "log submission progress")

	rootCmd.AddCommand(newGenerateCmd())
	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic review log as JSON lines",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	addGeneratorFlags(cmd)
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "output file (default stdout)")
	return cmd
}

func addGeneratorFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&genEvents, "events", defaultEvents, "number of events to generate")
	cmd.Flags().IntVar(&genCards, "cards", defaultCards, "number of distinct cards")
	cmd.Flags().IntVar(&genDays, "days", defaultDays, "days of history to spread reviews over")
	cmd.Flags().Int64Var(&genSeed, "seed", 1, "generator seed")
	cmd.Flags().Int64Var(&genNDS, "next-day-start", 0, "reference next day start in unix seconds (default: next rollover)")
	cmd.Flags().StringVar(&genTimezone, "timezone", defaultTZ, "timezone used to derive the next day start")
	cmd.Flags().IntVar(&genRollover, "rollover-hour", defaultRollover, "rollover hour used to derive the next day start")
}

// nextDayStart returns the explicit flag value or the next rollover.
func nextDayStart(now time.Time) (int64, error) {
	if genNDS > 0 {
		return genNDS, nil
	}
	clock, err := daybound.New(genTimezone, genRollover)
	if err != nil {
		return 0, err
	}
	return clock.NextDayStart(now), nil
}

func runLoadCmd(cmd *cobra.Command, _ []string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if runVerbose {
		_ = logger.SetLevelString("debug")
	}

	nds, err := nextDayStart(time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:      runURL,
		NumEvents:    genEvents,
		Cards:        genCards,
		Days:         genDays,
		DuplicatePct: runDups,
		Workers:      runWorkers,
		Timeout:      runTimeout,
		Settle:       runSettle,
		Seed:         genSeed,
		NextDayStart: nds,
	})
	if stats != nil {
		printSummary(cmd.OutOrStdout(), stats)
	}
	return err
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	nds, err := nextDayStart(time.Now())
	if err != nil {
		return err
	}
	events, err := loadgen.Generate(genEvents, genCards, genDays, nds, genSeed)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if genOutput != "" {
		f, err := os.Create(genOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to close output: %v\n", cerr)
			}
		}()
		out = f
	}

	enc := json.NewEncoder(out)
	for _, e := range events {
		if err := enc.Encode(types.FromModel(e)); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, s *loadgen.Stats) {
	fmt.Fprintf(w, "events:      %d generated, %d submitted\n", s.EventsGenerated, s.EventsSubmitted)
	fmt.Fprintf(w, "responses:   %d accepted, %d duplicate, %d throttled, %d failed\n",
		s.EventsAccepted, s.EventsDuplicate, s.EventsThrottled, s.EventsFailed)
	fmt.Fprintf(w, "timing:      submit %s, total %s\n", s.SubmitDuration.Round(time.Millisecond), s.Duration.Round(time.Millisecond))

	r := s.ServerRetention
	fmt.Fprintf(w, "report:      next_day_start %d, %d counted, %d excluded, %d out of range\n",
		r.NextDayStart, r.Diagnostics.Counted, r.Diagnostics.Excluded(), r.Diagnostics.OutOfRange)
	if len(s.Mismatches) == 0 {
		fmt.Fprintln(w, "verify:      ok")
		return
	}
	fmt.Fprintf(w, "verify:      %d mismatches\n", len(s.Mismatches))
	for _, m := range s.Mismatches {
		fmt.Fprintf(w, "  %s\n", m)
	}
}
