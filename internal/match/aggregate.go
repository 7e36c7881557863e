package match

import (
	"sort"

	"github.com/rnicolet/bankmatch/internal/model"
)

// Aggregate merges the raw strategy output for one transaction: stable sort
// descending by confidence (ties keep strategy/insertion order), keep the
// first suggestion per distinct ledger entry, truncate to the configured
// maximum.
func Aggregate(suggestions []model.Suggestion, maxSuggestions int) []model.Suggestion {
	if len(suggestions) == 0 {
		return nil
	}

	sorted := make([]model.Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	seen := make(map[int64]bool, len(sorted))
	deduped := sorted[:0]
	for _, s := range sorted {
		if seen[s.LedgerEntryID] {
			continue
		}
		seen[s.LedgerEntryID] = true
		deduped = append(deduped, s)
	}

	if maxSuggestions > 0 && len(deduped) > maxSuggestions {
		deduped = deduped[:maxSuggestions]
	}
	return deduped
}

// Disposition decides the reconciliation outcome from the best aggregated
// suggestion. This is the only place the outcome is decided; re-running it
// on the same inputs reproduces the same result.
func Disposition(suggestions []model.Suggestion, cfg Config) (model.ReconcileState, float64, *int64) {
	if len(suggestions) == 0 {
		return model.StateNotMatched, 0, nil
	}

	best := suggestions[0]
	switch {
	case best.Confidence >= cfg.MatchThreshold:
		entryID := best.LedgerEntryID
		return model.StateMatched, best.Confidence, &entryID
	case best.Confidence >= cfg.UncertainFloor:
		return model.StateUncertain, best.Confidence, nil
	default:
		return model.StateNotMatched, 0, nil
	}
}
