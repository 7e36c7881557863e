package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/importer"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/storage"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import and reconcile a bank statement file",
		Long: `Import a bank statement file (CSV, OFX or PDF), match its transactions
against open ledger entries, and report the result.

The file format is detected from the file name and content. With
--auto-reconcile the statement is materialized into the ledger when
reconciliation finishes; without it the job stops in the reconciled state
for review.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportFile,
	}

	cmd.Flags().StringP("journal", "j", "", "bank journal the statement belongs to")
	cmd.Flags().Int64("company", 1, "company the statement belongs to")
	cmd.Flags().StringP("name", "n", "", "job name (default: file name)")
	cmd.Flags().Bool("auto-reconcile", false, "materialize the statement when reconciliation finishes")
	cmd.Flags().Bool("use-ai", false, "allow AI-assisted extraction for PDF statements")

	_ = viper.BindPFlag("import.journal", cmd.Flags().Lookup("journal"))
	_ = viper.BindPFlag("import.company", cmd.Flags().Lookup("company"))

	return cmd
}

func runImportFile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filePath := args[0]

	journalID := viper.GetString("import.journal")
	if journalID == "" {
		return fmt.Errorf("%w: a journal is required (--journal or import.journal in config)", common.ErrMissingConfig)
	}
	companyID := viper.GetInt64("import.company")

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(filePath)
	}
	autoReconcile, _ := cmd.Flags().GetBool("auto-reconcile")
	useAI, _ := cmd.Flags().GetBool("use-ai")

	data, err := os.ReadFile(filePath) // #nosec G304 -- user-supplied statement path
	if err != nil {
		return fmt.Errorf("failed to read statement file: %w", err)
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	imp := buildImporter(store)

	job, err := imp.CreateJob(ctx, name, journalID, companyID)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	job.AutoReconcile = autoReconcile
	job.UseAI = useAI
	if err := store.UpdateJob(ctx, job); err != nil {
		return err
	}

	slog.Info("Importing statement", "file", filePath, "job", job.ID, "journal", journalID)

	job, err = imp.Run(ctx, job.ID, filepath.Base(filePath), data)
	if err != nil {
		if job != nil {
			slog.Error("Import failed", "job", job.ID, "state", job.State, "error", err)
		}
		return err
	}

	return printJobSummary(ctx, imp, store, job)
}

func printJobSummary(ctx context.Context, imp *importer.Importer, store *storage.SQLiteStorage, job *model.ImportJob) error {
	stats, err := imp.JobStats(ctx, job.ID)
	if err != nil {
		return err
	}

	slog.Info("Import finished", "job", job.ID, "state", job.State)
	slog.Info("Reconciliation summary",
		"transactions", stats.Total,
		"matched", stats.Matched,
		"uncertain", stats.Uncertain,
		"not_matched", stats.NotMatched,
		"duplicates", stats.Duplicates)

	alerts, err := store.GetAlerts(ctx, job.ID)
	if err != nil {
		return err
	}
	for i := range alerts {
		switch alerts[i].Severity {
		case model.SeverityError:
			slog.Error(alerts[i].Message, "type", alerts[i].Type)
		case model.SeverityWarning:
			slog.Warn(alerts[i].Message, "type", alerts[i].Type)
		default:
			slog.Info(alerts[i].Message, "type", alerts[i].Type)
		}
	}
	return nil
}
