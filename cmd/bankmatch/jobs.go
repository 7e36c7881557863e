package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rnicolet/bankmatch/internal/cli"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage import jobs",
	}

	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsShowCmd())
	cmd.AddCommand(jobsReviewCmd())
	cmd.AddCommand(jobsResetCmd())
	cmd.AddCommand(jobsReconcileCmd())

	return cmd
}

func jobsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List import jobs, most recent first",
		RunE:  runJobsList,
	}
	cmd.Flags().Int64("company", 1, "company to list jobs for")
	cmd.Flags().Int("limit", 20, "maximum number of jobs to show")
	return cmd
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	companyID := companyFlag(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	jobs, err := store.ListJobs(ctx, companyID, limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		slog.Info("No import jobs found", "company", companyID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tJOURNAL\tSTATE\tFILE\tCREATED")
	for i := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			jobs[i].ID, jobs[i].Name, jobs[i].JournalID, jobs[i].State,
			jobs[i].FileName, jobs[i].CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func jobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job's transactions, suggestions and alerts",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobsShow,
	}
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	job, err := store.GetJob(ctx, args[0])
	if err != nil {
		return err
	}

	slog.Info("Import job",
		"id", job.ID,
		"name", job.Name,
		"journal", job.JournalID,
		"state", job.State,
		"file", job.FileName,
		"format", job.FileType)
	if job.LastError != "" {
		slog.Error("Last error", "error", job.LastError)
	}

	transactions, err := store.GetTransactions(ctx, job.ID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tAMOUNT\tDESCRIPTION\tSTATE\tCONFIDENCE\tENTRY")
	for i := range transactions {
		txn := &transactions[i]
		entry := "-"
		if txn.MatchedEntryID != nil {
			entry = fmt.Sprintf("%d", *txn.MatchedEntryID)
		}
		state := string(txn.State)
		if txn.IsDuplicate {
			state += " (duplicate)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			txn.Date.Format("2006-01-02"), txn.Amount.StringFixed(2),
			txn.Description, state, txn.Confidence*100, entry)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	alerts, err := store.GetAlerts(ctx, job.ID)
	if err != nil {
		return err
	}
	for i := range alerts {
		slog.Warn(alerts[i].Message, "severity", alerts[i].Severity, "state", alerts[i].State)
	}
	return nil
}

func jobsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <job-id>",
		Short: "Interactively resolve uncertain and unmatched transactions",
		Long: `Walk through the transactions the matching engine could not resolve
and pick a suggestion, skip, or quit. Picked suggestions mark the
transaction as manually matched.`,
		Args: cobra.ExactArgs(1),
		RunE: runJobsReview,
	}
}

func runJobsReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := buildImporter(store)
	reviewer := cli.NewReviewer(os.Stdin, os.Stdout, imp, store, store)

	stats, err := reviewer.Review(ctx, args[0])
	if err != nil {
		return err
	}

	slog.Info("Review session finished",
		"reviewed", stats.Reviewed,
		"applied", stats.Applied,
		"skipped", stats.Skipped)
	return nil
}

func jobsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <job-id>",
		Short: "Reset a job back to draft, discarding parsed data",
		Long: `Reset an import job to the draft state. Parsed transactions,
suggestions and alerts are discarded so the file can be re-uploaded.
Jobs whose statement has been materialized cannot be reset.`,
		Args: cobra.ExactArgs(1),
		RunE: runJobsReset,
	}
}

func runJobsReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := buildImporter(store)
	job, err := imp.Reset(ctx, args[0])
	if err != nil {
		return err
	}

	slog.Info("Job reset to draft", "job", job.ID)
	return nil
}

func jobsReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <job-id>",
		Short: "Re-run matching for a parsed or reconciled job",
		Long: `Run (or re-run) the matching pass for a job. Useful after adding
rules or ledger entries: previous suggestions and alerts are regenerated.
With --materialize the statement is written to the ledger afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runJobsReconcile,
	}
	cmd.Flags().Bool("materialize", false, "materialize the statement after reconciling")
	return cmd
}

func runJobsReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	materialize, _ := cmd.Flags().GetBool("materialize")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := buildImporter(store)
	job, err := imp.Reconcile(ctx, args[0])
	if err != nil {
		return err
	}
	if materialize {
		if job, err = imp.Materialize(ctx, job.ID); err != nil {
			return err
		}
	}

	return printJobSummary(ctx, imp, store, job)
}

// companyFlag reads the company from flag or config, flag winning.
func companyFlag(cmd *cobra.Command) int64 {
	if cmd.Flags().Changed("company") {
		id, _ := cmd.Flags().GetInt64("company")
		return id
	}
	if id := viper.GetInt64("import.company"); id != 0 {
		return id
	}
	id, _ := cmd.Flags().GetInt64("company")
	return id
}
