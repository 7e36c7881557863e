package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rnicolet/bankmatch/internal/cli"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reconciliation rules",
		Long: `Reconciliation rules boost match confidence and stamp partner or
account metadata onto transactions they recognize. Rules apply in
sequence order during every reconciliation pass.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesDeleteCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active rules in evaluation order",
		RunE:  runRulesList,
	}
	cmd.Flags().Int64("company", 1, "company scope")
	return cmd
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	companyID := companyFlag(cmd)

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ruleSet, err := store.GetActiveRules(ctx, companyID)
	if err != nil {
		return err
	}
	if len(ruleSet) == 0 {
		slog.Info("No active rules", "company", companyID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEQ\tNAME\tTYPE\tBOOST\tMATCHES")
	for i := range ruleSet {
		r := &ruleSet[i]
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%.2f\t%d\n",
			r.ID, r.Sequence, r.Name, r.Type, r.ConfidenceBoost, r.MatchCount)
	}
	return w.Flush()
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a reconciliation rule",
		Long: `Add a rule. The criteria flags that matter depend on --type:

  reference_pattern    --pattern (regular expression, case-insensitive)
  amount_range         --min and/or --max (absolute amounts)
  description_keyword  --keywords (comma-separated, any matches)
  partner_keyword      --partner-keywords (comma-separated, any matches)
  combined             every configured criterion must match`,
		RunE: runRulesAdd,
	}

	cmd.Flags().String("name", "", "rule name (required)")
	cmd.Flags().String("type", string(model.RuleDescriptionKeyword), "rule type")
	cmd.Flags().Int("sequence", 100, "evaluation order, lower first")
	cmd.Flags().Float64("boost", 0.1, "confidence boost applied on match (0-1)")
	cmd.Flags().String("pattern", "", "reference regular expression")
	cmd.Flags().String("keywords", "", "description keywords, comma-separated")
	cmd.Flags().String("partner-keywords", "", "partner keywords, comma-separated")
	cmd.Flags().Float64("min", 0, "minimum absolute amount")
	cmd.Flags().Float64("max", 0, "maximum absolute amount")
	cmd.Flags().StringSlice("journals", nil, "journals the rule applies to (default: all)")
	cmd.Flags().Int64("company", 0, "company the rule applies to (default: all)")
	cmd.Flags().Int64("stamp-partner", 0, "partner to stamp on matching transactions")
	cmd.Flags().String("note", "", "note to stamp on matching transactions")

	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	ruleType, _ := cmd.Flags().GetString("type")
	sequence, _ := cmd.Flags().GetInt("sequence")
	boost, _ := cmd.Flags().GetFloat64("boost")
	pattern, _ := cmd.Flags().GetString("pattern")
	keywords, _ := cmd.Flags().GetString("keywords")
	partnerKeywords, _ := cmd.Flags().GetString("partner-keywords")
	journals, _ := cmd.Flags().GetStringSlice("journals")
	note, _ := cmd.Flags().GetString("note")

	rule := &model.Rule{
		Name:                name,
		Type:                model.RuleType(ruleType),
		Sequence:            sequence,
		ConfidenceBoost:     boost,
		ReferencePattern:    pattern,
		DescriptionKeywords: keywords,
		PartnerKeywords:     partnerKeywords,
		JournalIDs:          journals,
		Note:                note,
		Active:              true,
	}
	if cmd.Flags().Changed("min") {
		v, _ := cmd.Flags().GetFloat64("min")
		rule.AmountMin = &v
	}
	if cmd.Flags().Changed("max") {
		v, _ := cmd.Flags().GetFloat64("max")
		rule.AmountMax = &v
	}
	if cmd.Flags().Changed("company") {
		v, _ := cmd.Flags().GetInt64("company")
		rule.CompanyID = &v
	}
	if cmd.Flags().Changed("stamp-partner") {
		v, _ := cmd.Flags().GetInt64("stamp-partner")
		rule.StampPartnerID = &v
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateRule(ctx, rule); err != nil {
		return err
	}

	slog.Info("Rule created", "id", rule.ID, "name", rule.Name, "type", rule.Type)
	return nil
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <rule-id>",
		Short: "Evaluate a rule against a sample statement line",
		Long: `Build a statement line from the flags and report whether the rule
matches it. Useful for checking a pattern or keyword list before
importing a real file. The rule's match counter is not touched.`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesTest,
	}

	cmd.Flags().String("description", "", "sample line description")
	cmd.Flags().String("reference", "", "sample line reference")
	cmd.Flags().String("partner", "", "sample line partner name")
	cmd.Flags().String("amount", "0", "sample line amount")
	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "sample line date")

	return cmd
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id: %s", args[0])
	}

	description, _ := cmd.Flags().GetString("description")
	reference, _ := cmd.Flags().GetString("reference")
	partner, _ := cmd.Flags().GetString("partner")
	amountStr, _ := cmd.Flags().GetString("amount")
	dateStr, _ := cmd.Flags().GetString("date")

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rule, err := store.GetRule(ctx, id)
	if err != nil {
		return err
	}

	sample := &model.Transaction{
		Date:        date,
		Description: description,
		Reference:   reference,
		PartnerName: partner,
		Amount:      amount,
	}

	if rules.Matches(rule, sample) {
		fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf(
			"Rule %q matches (boost +%.2f)", rule.Name, rule.ConfidenceBoost)))
	} else {
		fmt.Fprintln(os.Stdout, cli.FormatWarning(fmt.Sprintf(
			"Rule %q does not match this line", rule.Name)))
	}
	return nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id: %s", args[0])
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(cmd.Context(), id); err != nil {
				return err
			}
			slog.Info("Rule deleted", "id", id)
			return nil
		},
	}
}
