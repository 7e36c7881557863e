package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnicolet/bankmatch/internal/ai"
)

func TestLocalScorer(t *testing.T) {
	scorer := NewLocalScorer()

	tests := []struct {
		name    string
		pair    ai.MatchPair
		wantMin float64
		wantMax float64
	}{
		{
			name: "identical text and amount",
			pair: ai.MatchPair{
				BankDescription: "ACME INVOICE 100",
				BankAmount:      "150.00",
				EntryName:       "ACME INVOICE 100",
				EntryAmount:     "150.00",
			},
			wantMin: 1.0,
			wantMax: 1.0,
		},
		{
			name: "close text with equal amount clears the bar",
			pair: ai.MatchPair{
				BankDescription: "VIR ACME INVOICE 100",
				BankAmount:      "150.00",
				EntryName:       "ACME INVOICE 100",
				EntryAmount:     "150.00",
			},
			wantMin: 0.5,
			wantMax: 1.0,
		},
		{
			name: "amount alone is not enough",
			pair: ai.MatchPair{
				BankDescription: "XZQW",
				BankAmount:      "150.00",
				EntryName:       "COMPLETELY UNRELATED PAYEE",
				EntryAmount:     "150.00",
			},
			wantMin: 0.0,
			wantMax: 0.49,
		},
		{
			name: "text alone cannot clear uncertain band without amount",
			pair: ai.MatchPair{
				BankDescription: "ACME INVOICE 100",
				BankAmount:      "150.00",
				EntryName:       "ACME INVOICE 100",
				EntryAmount:     "999.99",
			},
			wantMin: 0.5,
			wantMax: 0.6,
		},
		{
			name: "partner name inside description",
			pair: ai.MatchPair{
				BankDescription: "VIR SEPA 8492 ACME SARL PAIEMENT",
				BankAmount:      "150.00",
				EntryName:       "INV/2024/0042",
				EntryAmount:     "150.00",
				EntryPartner:    "ACME SARL",
			},
			wantMin: 0.9,
			wantMax: 1.0,
		},
		{
			name: "opposite signs still compare by magnitude",
			pair: ai.MatchPair{
				BankDescription: "ACME",
				BankAmount:      "-150.00",
				EntryName:       "ACME",
				EntryAmount:     "150.00",
			},
			wantMin: 1.0,
			wantMax: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := scorer.ScoreMatch(context.Background(), tt.pair)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score.Score, tt.wantMin, "reason: %s", score.Reason)
			assert.LessOrEqual(t, score.Score, tt.wantMax, "reason: %s", score.Reason)
			assert.NotEmpty(t, score.Reason)
		})
	}
}

func TestLocalScorer_Deterministic(t *testing.T) {
	scorer := NewLocalScorer()
	pair := ai.MatchPair{
		BankDescription: "VIR ACME",
		BankAmount:      "10.00",
		EntryName:       "ACME",
		EntryAmount:     "10.00",
	}

	first, err := scorer.ScoreMatch(context.Background(), pair)
	require.NoError(t, err)
	second, err := scorer.ScoreMatch(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("acme", "ACME"))
	assert.Equal(t, 0.0, textSimilarity("", "ACME"))
	assert.InDelta(t, 0.5, textSimilarity("ABCD", "ABXY"), 1e-9)
}
