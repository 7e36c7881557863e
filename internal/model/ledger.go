package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSide distinguishes the debit and credit columns of an entry.
type LedgerSide string

// Ledger entry sides.
const (
	SideDebit  LedgerSide = "debit"
	SideCredit LedgerSide = "credit"
)

// LedgerEntry is an existing accounting-journal line eligible for
// reconciliation: an unreconciled receivable or payable.
type LedgerEntry struct {
	Date        time.Time
	PartnerID   *int64
	Name        string
	Reference   string
	PartnerName string
	AccountType string
	ID          int64
	CompanyID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Reconciled  bool
}

// Amount returns the entry's magnitude on whichever side is populated.
func (e *LedgerEntry) Amount() decimal.Decimal {
	if e.Debit.Sign() != 0 {
		return e.Debit
	}
	return e.Credit
}

// LedgerStatement is the materialized bank statement created when an import
// job completes.
type LedgerStatement struct {
	Date           time.Time
	CreatedAt      time.Time
	Name           string
	JournalID      string
	ID             int64
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
}

// LedgerStatementLine is one statement line materialized from an imported
// transaction.
type LedgerStatementLine struct {
	Date             time.Time
	PartnerID        *int64
	ReconciledWithID *int64
	PaymentRef       string
	Reference        string
	PartnerName      string
	DedupKey         string
	ID               int64
	StatementID      int64
	Amount           decimal.Decimal
}
