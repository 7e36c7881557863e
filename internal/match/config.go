package match

// Config tunes the matching engine. All windows are expressed in days around
// the transaction date.
type Config struct {
	// MatchThreshold is the confidence at or above which a transaction is
	// automatically matched.
	MatchThreshold float64
	// UncertainFloor is the confidence below which a best suggestion no
	// longer counts as uncertain and the transaction stays unmatched. The
	// semantic strategy discards candidates scoring below it.
	UncertainFloor float64

	AmountDateWindowDays    int
	PartnerAmountWindowDays int
	SemanticWindowDays      int

	// SemanticCandidateCap bounds how many ledger entries are scored per
	// transaction; semantic scoring is the expensive strategy.
	SemanticCandidateCap int
	// MaxSuggestions bounds the aggregated suggestion list per transaction.
	MaxSuggestions int

	ExactReferenceLimit int
	AmountDateLimit     int
	PartnerAmountLimit  int
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:          0.8,
		UncertainFloor:          0.5,
		AmountDateWindowDays:    7,
		PartnerAmountWindowDays: 60,
		SemanticWindowDays:      30,
		SemanticCandidateCap:    50,
		MaxSuggestions:          10,
		ExactReferenceLimit:     5,
		AmountDateLimit:         10,
		PartnerAmountLimit:      5,
	}
}
