// Package match implements the multi-strategy matching engine that proposes
// ledger-entry candidates for imported bank transactions. Strategies run
// independently against the open receivable/payable population and their
// results are merged by the aggregator.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/rnicolet/bankmatch/internal/ai"
	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/service"
)

// Scorer judges the similarity of a bank transaction and a ledger entry.
// The AI client satisfies it; LocalScorer is the deterministic fallback.
type Scorer interface {
	ScoreMatch(ctx context.Context, pair ai.MatchPair) (ai.MatchScore, error)
}

// Engine runs every matching strategy for one transaction.
type Engine struct {
	ledger service.LedgerQuery
	scorer Scorer
	cfg    Config
}

// NewEngine creates a matching engine. A nil scorer disables the semantic
// strategy entirely.
func NewEngine(ledger service.LedgerQuery, scorer Scorer, cfg Config) *Engine {
	return &Engine{ledger: ledger, scorer: scorer, cfg: cfg}
}

// WithScorer returns a copy of the engine running the semantic strategy
// through the given scorer. The receiver is left untouched.
func (e *Engine) WithScorer(scorer Scorer) *Engine {
	clone := *e
	clone.scorer = scorer
	return &clone
}

// FindSuggestions runs all strategies for one transaction and returns the
// raw, unaggregated union of their candidates. Strategy order is fixed so
// that ties in the later stable sort favor the stronger strategy. A semantic
// ledger-query failure skips only that strategy; any other query failure
// aborts the pass.
func (e *Engine) FindSuggestions(ctx context.Context, txn *model.Transaction, companyID int64) ([]model.Suggestion, error) {
	var suggestions []model.Suggestion

	exact, err := e.exactReference(ctx, txn, companyID)
	if err != nil {
		return nil, fmt.Errorf("exact reference strategy: %w", err)
	}
	suggestions = append(suggestions, exact...)

	byAmount, err := e.amountDate(ctx, txn, companyID)
	if err != nil {
		return nil, fmt.Errorf("amount/date strategy: %w", err)
	}
	suggestions = append(suggestions, byAmount...)

	byPartner, err := e.partnerAmount(ctx, txn, companyID)
	if err != nil {
		return nil, fmt.Errorf("partner/amount strategy: %w", err)
	}
	suggestions = append(suggestions, byPartner...)

	suggestions = append(suggestions, e.semantic(ctx, txn, companyID)...)

	return suggestions, nil
}

// exactReference finds entries whose reference equals the transaction's
// reference, case-sensitively. These are certain matches.
func (e *Engine) exactReference(ctx context.Context, txn *model.Transaction, companyID int64) ([]model.Suggestion, error) {
	if txn.Reference == "" {
		return nil, nil
	}

	entries, err := e.ledger.FindByReference(ctx, companyID, txn.Reference, e.cfg.ExactReferenceLimit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]model.Suggestion, 0, len(entries))
	for _, entry := range entries {
		suggestions = append(suggestions, model.Suggestion{
			TransactionID: txn.ID,
			LedgerEntryID: entry.ID,
			Strategy:      model.StrategyExactReference,
			Confidence:    1.0,
			Reason:        fmt.Sprintf("reference %q matches entry %q exactly", txn.Reference, entry.Name),
		})
	}
	return suggestions, nil
}

// amountDate finds entries with the exact same amount within a short window
// around the transaction date. Confidence decays with date distance and is
// floor-clamped; amounts must match exactly.
func (e *Engine) amountDate(ctx context.Context, txn *model.Transaction, companyID int64) ([]model.Suggestion, error) {
	from, to := window(txn.Date, e.cfg.AmountDateWindowDays)
	entries, err := e.ledger.FindByAmountInWindow(ctx, companyID, txn.AbsAmount(), sideFor(txn), from, to, e.cfg.AmountDateLimit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]model.Suggestion, 0, len(entries))
	for _, entry := range entries {
		days := daysApart(txn.Date, entry.Date)
		confidence := max(0.5, 1.0-float64(days)/30.0)
		suggestions = append(suggestions, model.Suggestion{
			TransactionID: txn.ID,
			LedgerEntryID: entry.ID,
			Strategy:      model.StrategyAmountDate,
			Confidence:    confidence,
			Reason:        fmt.Sprintf("same amount %s, %d day(s) apart", txn.AbsAmount().StringFixed(2), days),
		})
	}
	return suggestions, nil
}

// partnerAmount finds same-amount entries belonging to the transaction's
// known counter-party. The partner link justifies a wider window and a
// higher confidence floor.
func (e *Engine) partnerAmount(ctx context.Context, txn *model.Transaction, companyID int64) ([]model.Suggestion, error) {
	if txn.PartnerID == nil {
		return nil, nil
	}

	from, to := window(txn.Date, e.cfg.PartnerAmountWindowDays)
	entries, err := e.ledger.FindByPartnerAmount(ctx, companyID, *txn.PartnerID, txn.AbsAmount(), sideFor(txn), from, to, e.cfg.PartnerAmountLimit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]model.Suggestion, 0, len(entries))
	for _, entry := range entries {
		days := daysApart(txn.Date, entry.Date)
		confidence := max(0.6, 0.9-float64(days)/60.0)
		suggestions = append(suggestions, model.Suggestion{
			TransactionID: txn.ID,
			LedgerEntryID: entry.ID,
			Strategy:      model.StrategyPartnerAmount,
			Confidence:    confidence,
			Reason:        fmt.Sprintf("known partner %s with same amount, %d day(s) apart", entry.PartnerName, days),
		})
	}
	return suggestions, nil
}

// semantic scores free-text similarity for every open entry in the window.
// Per-candidate scoring failures skip that candidate; a ledger-query failure
// skips the whole strategy. Neither aborts the matching pass.
func (e *Engine) semantic(ctx context.Context, txn *model.Transaction, companyID int64) []model.Suggestion {
	if e.scorer == nil {
		common.LogDebug("semantic strategy disabled, no scorer", common.Fields{"transaction": txn.ID})
		return nil
	}

	from, to := window(txn.Date, e.cfg.SemanticWindowDays)
	entries, err := e.ledger.FindOpenInWindow(ctx, companyID, from, to, e.cfg.SemanticCandidateCap)
	if err != nil {
		common.LogWarn("semantic strategy skipped, candidate query failed", common.Fields{
			"transaction": txn.ID,
			"error":       err.Error(),
		})
		return nil
	}

	var suggestions []model.Suggestion
	for _, entry := range entries {
		score, scoreErr := e.scorer.ScoreMatch(ctx, pairFor(txn, &entry))
		if scoreErr != nil {
			common.LogWarn("semantic candidate skipped", common.Fields{
				"transaction": txn.ID,
				"entry":       entry.ID,
				"error":       scoreErr.Error(),
			})
			continue
		}
		if score.Score < e.cfg.UncertainFloor {
			continue
		}
		suggestions = append(suggestions, model.Suggestion{
			TransactionID: txn.ID,
			LedgerEntryID: entry.ID,
			Strategy:      model.StrategySemantic,
			Confidence:    score.Score,
			Reason:        score.Reason,
		})
	}
	return suggestions
}

// sideFor maps the transaction's sign to the ledger side it settles: money
// received settles a debit (receivable), money paid settles a credit.
func sideFor(txn *model.Transaction) model.LedgerSide {
	if txn.Amount.Sign() >= 0 {
		return model.SideDebit
	}
	return model.SideCredit
}

func window(center time.Time, days int) (time.Time, time.Time) {
	d := time.Duration(days) * 24 * time.Hour
	return center.Add(-d), center.Add(d)
}

// daysApart returns the whole-day distance between two dates, ignoring the
// time of day.
func daysApart(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

func pairFor(txn *model.Transaction, entry *model.LedgerEntry) ai.MatchPair {
	return ai.MatchPair{
		BankDescription: txn.Description,
		BankAmount:      txn.Amount.StringFixed(2),
		BankDate:        txn.Date.Format("2006-01-02"),
		EntryName:       entry.Name,
		EntryReference:  entry.Reference,
		EntryAmount:     entry.Amount().StringFixed(2),
		EntryDate:       entry.Date.Format("2006-01-02"),
		EntryPartner:    entry.PartnerName,
	}
}
