package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReconcileState is the reconciliation disposition of a transaction.
type ReconcileState string

// Reconciliation states.
const (
	StateNotMatched ReconcileState = "not_matched"
	StateUncertain  ReconcileState = "uncertain"
	StateMatched    ReconcileState = "matched"
	StateManual     ReconcileState = "manual"
)

// Transaction represents a single statement line extracted from a source file.
type Transaction struct {
	Date           time.Time
	CreatedAt      time.Time
	MatchedEntryID *int64
	PartnerID      *int64
	ID             string
	JobID          string
	Description    string
	Reference      string
	PartnerName    string
	AccountNumber  string
	Note           string
	DedupKey       string
	State          ReconcileState
	Amount         decimal.Decimal
	Confidence     float64
	Sequence       int
	IsDuplicate    bool
}

// GenerateDedupKey derives a stable identifier for re-import detection.
// A source-provided unique id wins; otherwise hash date, amount and
// description.
func (t *Transaction) GenerateDedupKey(sourceID string) string {
	if sourceID != "" {
		return sourceID
	}
	data := fmt.Sprintf("%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsCredit reports whether the amount flows into the account.
func (t *Transaction) IsCredit() bool {
	return t.Amount.Sign() > 0
}

// AbsAmount returns the unsigned amount.
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}
