package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/service"
)

// SuggestionApplier resolves a transaction against a ledger entry on the
// reviewer's behalf.
type SuggestionApplier interface {
	ApplySuggestion(ctx context.Context, txn *model.Transaction, ledgerEntryID int64, confidence float64) error
}

// ReviewStats summarizes an interactive review session.
type ReviewStats struct {
	Reviewed int
	Applied  int
	Skipped  int
}

// Reviewer walks the unresolved transactions of a job and lets the user pick
// a suggestion, skip, or quit. Resolved transactions move to the manual
// state.
type Reviewer struct {
	reader      *bufio.Reader
	writer      io.Writer
	applier     SuggestionApplier
	txns        service.TransactionRepository
	suggestions service.SuggestionRepository
}

// NewReviewer creates a reviewer with the given reader and writer. Nil
// defaults to stdin and stdout.
func NewReviewer(reader io.Reader, writer io.Writer, applier SuggestionApplier, txns service.TransactionRepository, suggestions service.SuggestionRepository) *Reviewer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Reviewer{
		reader:      bufio.NewReader(reader),
		writer:      writer,
		applier:     applier,
		txns:        txns,
		suggestions: suggestions,
	}
}

// Review prompts for every uncertain or unmatched transaction of the job.
func (r *Reviewer) Review(ctx context.Context, jobID string) (ReviewStats, error) {
	var stats ReviewStats

	transactions, err := r.txns.GetTransactions(ctx, jobID)
	if err != nil {
		return stats, err
	}

	for idx := range transactions {
		txn := &transactions[idx]
		if txn.State != model.StateUncertain && txn.State != model.StateNotMatched {
			continue
		}
		if txn.IsDuplicate {
			continue
		}

		done, reviewErr := r.reviewOne(ctx, txn, &stats)
		if reviewErr != nil {
			return stats, reviewErr
		}
		if done {
			break
		}
	}

	fmt.Fprintln(r.writer, FormatSuccess(fmt.Sprintf(
		"Review finished: %d reviewed, %d applied, %d skipped",
		stats.Reviewed, stats.Applied, stats.Skipped)))
	return stats, nil
}

// reviewOne handles a single transaction. It returns true when the user
// quit the session.
func (r *Reviewer) reviewOne(ctx context.Context, txn *model.Transaction, stats *ReviewStats) (bool, error) {
	suggestions, err := r.suggestions.GetSuggestions(ctx, txn.ID)
	if err != nil {
		return false, err
	}

	stats.Reviewed++
	fmt.Fprintln(r.writer, RenderBox("Unresolved transaction", r.formatTransaction(txn)))

	if len(suggestions) == 0 {
		fmt.Fprintln(r.writer, WarningStyle.Render("No suggestions for this transaction."))
	}
	for i := range suggestions {
		s := &suggestions[i]
		fmt.Fprintf(r.writer, "  [%d] entry %d  %s  (%.0f%%, %s)\n",
			i+1, s.LedgerEntryID, s.Strategy, s.Confidence*100, s.Reason)
	}
	fmt.Fprintln(r.writer, "  [s] Skip this transaction")
	fmt.Fprintln(r.writer, "  [q] Quit review")

	for {
		choice, promptErr := r.promptChoice(ctx, "Choice")
		if promptErr != nil {
			return false, promptErr
		}

		switch choice {
		case "s":
			stats.Skipped++
			return false, nil
		case "q":
			return true, nil
		default:
			n, convErr := strconv.Atoi(choice)
			if convErr != nil || n < 1 || n > len(suggestions) {
				fmt.Fprintln(r.writer, FormatError("Invalid choice. Please try again."))
				continue
			}
			picked := suggestions[n-1]
			if applyErr := r.applier.ApplySuggestion(ctx, txn, picked.LedgerEntryID, picked.Confidence); applyErr != nil {
				return false, applyErr
			}
			stats.Applied++
			fmt.Fprintln(r.writer, FormatSuccess(fmt.Sprintf("Matched with ledger entry %d", picked.LedgerEntryID)))
			return false, nil
		}
	}
}

func (r *Reviewer) formatTransaction(txn *model.Transaction) string {
	lines := []string{
		fmt.Sprintf("Date:        %s", txn.Date.Format("2006-01-02")),
		fmt.Sprintf("Amount:      %s", txn.Amount.StringFixed(2)),
		fmt.Sprintf("Description: %s", txn.Description),
	}
	if txn.Reference != "" {
		lines = append(lines, fmt.Sprintf("Reference:   %s", txn.Reference))
	}
	if txn.PartnerName != "" {
		lines = append(lines, fmt.Sprintf("Partner:     %s", txn.PartnerName))
	}
	lines = append(lines, fmt.Sprintf("State:       %s", txn.State))
	return strings.Join(lines, "\n")
}

func (r *Reviewer) promptChoice(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if _, err := fmt.Fprintf(r.writer, "%s: ", FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	input, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(input) == "" {
			slog.Debug("review input terminated")
			return "q", nil
		}
		if err != io.EOF {
			return "", err
		}
	}
	return strings.ToLower(strings.TrimSpace(input)), nil
}
