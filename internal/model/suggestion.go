package model

import "time"

// MatchStrategy tags which heuristic produced a suggestion.
type MatchStrategy string

// Matching strategies.
const (
	StrategyExactReference MatchStrategy = "exact_reference"
	StrategyAmountDate     MatchStrategy = "amount_date"
	StrategyPartnerAmount  MatchStrategy = "partner_amount"
	StrategySemantic       MatchStrategy = "semantic"
	StrategyRule           MatchStrategy = "rule"
)

// Suggestion is one candidate ledger-entry match for a transaction.
type Suggestion struct {
	CreatedAt     time.Time
	TransactionID string
	Reason        string
	Strategy      MatchStrategy
	ID            int64
	LedgerEntryID int64
	Confidence    float64
}
