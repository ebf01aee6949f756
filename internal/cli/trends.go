package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/sentinel/internal/classify"
	"github.com/vietddude/sentinel/internal/core/config"
	"github.com/vietddude/sentinel/internal/infra/storage/postgres"
)

var trendWindow time.Duration

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show error volume trends per category over a recent window",
	Run:   runTrends,
}

func init() {
	trendsCmd.Flags().DurationVar(&trendWindow, "window", time.Hour, "analysis window")
	rootCmd.AddCommand(trendsCmd)
}

func runTrends(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	rules, err := classify.LoadRules(cfg.Classifier.RulesPath)
	if err != nil {
		slog.Error("Failed to load classifier rules", "error", err)
		os.Exit(1)
	}
	classifier := classify.New(rules, classify.Config{
		CriticalCountThreshold: cfg.Classifier.CriticalCountThreshold,
	}, nil)

	events, err := postgres.NewEventRepo(db).ListSince(ctx, time.Now().Add(-trendWindow))
	if err != nil {
		slog.Error("Failed to query events", "error", err)
		os.Exit(1)
	}

	trends := classifier.AnalyzeTrends(events, classify.TrendOptions{Window: trendWindow})
	if len(trends) == 0 {
		fmt.Printf("No events in the last %s\n", trendWindow)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CATEGORY\tDIRECTION\tTOTAL\tFIRST HALF\tSECOND HALF")
	for _, t := range trends {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
			t.Category, t.Direction, t.Total, t.FirstHalf, t.SecondHalf)
	}
	_ = w.Flush()
}
