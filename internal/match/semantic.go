package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/rnicolet/bankmatch/internal/ai"
)

// LocalScorer is the deterministic semantic scorer used when no AI client is
// configured. It combines edit-distance text similarity with exact amount
// agreement; it never errors.
type LocalScorer struct{}

// NewLocalScorer creates a scorer that needs no external collaborator.
func NewLocalScorer() *LocalScorer {
	return &LocalScorer{}
}

// ScoreMatch weighs description similarity against the entry name and
// reference, plus amount agreement. Text alone cannot clear the uncertain
// band without the amounts agreeing.
func (s *LocalScorer) ScoreMatch(_ context.Context, pair ai.MatchPair) (ai.MatchScore, error) {
	nameSim := textSimilarity(pair.BankDescription, pair.EntryName)
	if pair.EntryReference != "" {
		if refSim := textSimilarity(pair.BankDescription, pair.EntryReference); refSim > nameSim {
			nameSim = refSim
		}
	}
	if pair.EntryPartner != "" {
		if partnerSim := containsSimilarity(pair.BankDescription, pair.EntryPartner); partnerSim > nameSim {
			nameSim = partnerSim
		}
	}

	amountComponent := 0.0
	if pair.BankAmount != "" && trimSign(pair.BankAmount) == trimSign(pair.EntryAmount) {
		amountComponent = 1.0
	}

	score := 0.6*nameSim + 0.4*amountComponent
	reason := fmt.Sprintf("text similarity %.2f", nameSim)
	if amountComponent > 0 {
		reason += ", amounts equal"
	}
	return ai.MatchScore{Score: score, Reason: reason}, nil
}

// textSimilarity is a normalized edit-distance similarity in [0,1], compared
// case-insensitively.
func textSimilarity(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}

// containsSimilarity rewards a partner name appearing verbatim inside the
// bank description, which edit distance alone underweights for long
// descriptions.
func containsSimilarity(description, partner string) float64 {
	description = strings.ToUpper(strings.TrimSpace(description))
	partner = strings.ToUpper(strings.TrimSpace(partner))
	if partner == "" || description == "" {
		return 0
	}
	if strings.Contains(description, partner) {
		return 0.9
	}
	return 0
}

func trimSign(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "-")
}
