package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rnicolet/bankmatch/internal/model"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and seed ledger entries",
		Long: `The ledger holds the open journal entries that statement transactions
are matched against. In production these come from the accounting side;
the add subcommand exists for seeding and testing.`,
	}

	cmd.AddCommand(ledgerOpenCmd())
	cmd.AddCommand(ledgerAddCmd())

	return cmd
}

func ledgerOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "List open (unreconciled) ledger entries",
		RunE:  runLedgerOpen,
	}
	cmd.Flags().Int64("company", 1, "company scope")
	cmd.Flags().Int("days", 90, "how many days back to look")
	cmd.Flags().Int("limit", 50, "maximum number of entries to show")
	return cmd
}

func runLedgerOpen(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	companyID := companyFlag(cmd)
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	now := time.Now()
	entries, err := store.FindOpenInWindow(ctx, companyID, now.AddDate(0, 0, -days), now, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		slog.Info("No open ledger entries", "company", companyID, "days", days)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tNAME\tREFERENCE\tPARTNER\tDEBIT\tCREDIT")
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.Format("2006-01-02"), e.Name, e.Reference,
			e.PartnerName, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
	}
	return w.Flush()
}

func ledgerAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an open ledger entry (seeding and testing)",
		RunE:  runLedgerAdd,
	}

	cmd.Flags().Int64("company", 1, "company the entry belongs to")
	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "entry date")
	cmd.Flags().String("name", "", "entry label (required)")
	cmd.Flags().String("reference", "", "payment reference")
	cmd.Flags().String("partner", "", "partner name")
	cmd.Flags().Int64("partner-id", 0, "partner identifier")
	cmd.Flags().String("debit", "", "debit amount")
	cmd.Flags().String("credit", "", "credit amount")

	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runLedgerAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dateStr, _ := cmd.Flags().GetString("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	parseAmount := func(flag string) (decimal.Decimal, error) {
		s, _ := cmd.Flags().GetString(flag)
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	debit, err := parseAmount("debit")
	if err != nil {
		return fmt.Errorf("invalid debit amount: %w", err)
	}
	credit, err := parseAmount("credit")
	if err != nil {
		return fmt.Errorf("invalid credit amount: %w", err)
	}
	if debit.Sign() == 0 && credit.Sign() == 0 {
		return fmt.Errorf("a debit or credit amount is required")
	}

	name, _ := cmd.Flags().GetString("name")
	reference, _ := cmd.Flags().GetString("reference")
	partner, _ := cmd.Flags().GetString("partner")

	entry := &model.LedgerEntry{
		CompanyID:   companyFlag(cmd),
		Date:        date,
		Name:        name,
		Reference:   reference,
		PartnerName: partner,
		Debit:       debit,
		Credit:      credit,
	}
	if cmd.Flags().Changed("partner-id") {
		v, _ := cmd.Flags().GetInt64("partner-id")
		entry.PartnerID = &v
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateLedgerEntry(ctx, entry); err != nil {
		return err
	}

	slog.Info("Ledger entry created", "id", entry.ID, "name", entry.Name)
	return nil
}
