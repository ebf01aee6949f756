package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/sentinel/internal/core/config"
	"github.com/vietddude/sentinel/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show open incidents and their resolution state",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	rows, err := db.QueryContext(ctx,
		"SELECT fingerprint, state, escalation_level, resolution_attempts, updated_at FROM incidents WHERE state NOT IN ('resolved', 'escalated') ORDER BY updated_at DESC")
	if err != nil {
		slog.Error("Failed to query incidents", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "FINGERPRINT\tSTATE\tESCALATION\tATTEMPTS\tUPDATED")

	for rows.Next() {
		var fingerprint, state, updatedAt string
		var escalation, attempts int
		if err := rows.Scan(&fingerprint, &state, &escalation, &attempts, &updatedAt); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", fingerprint, state, escalation, attempts, updatedAt)
	}
	_ = w.Flush()
}
