package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnicolet/bankmatch/internal/model"
)

func suggestion(entryID int64, confidence float64, strategy model.MatchStrategy) model.Suggestion {
	return model.Suggestion{
		TransactionID: "txn-1",
		LedgerEntryID: entryID,
		Confidence:    confidence,
		Strategy:      strategy,
	}
}

func TestAggregate_SortsDescending(t *testing.T) {
	input := []model.Suggestion{
		suggestion(1, 0.6, model.StrategyAmountDate),
		suggestion(2, 1.0, model.StrategyExactReference),
		suggestion(3, 0.8, model.StrategyPartnerAmount),
	}

	out := Aggregate(input, 10)
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].LedgerEntryID)
	assert.Equal(t, int64(3), out[1].LedgerEntryID)
	assert.Equal(t, int64(1), out[2].LedgerEntryID)
}

func TestAggregate_DedupesByLedgerEntry(t *testing.T) {
	// The same ledger entry proposed by two strategies keeps only the
	// higher-confidence occurrence.
	input := []model.Suggestion{
		suggestion(1, 0.7, model.StrategyAmountDate),
		suggestion(1, 1.0, model.StrategyExactReference),
		suggestion(2, 0.8, model.StrategyPartnerAmount),
	}

	out := Aggregate(input, 10)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].LedgerEntryID)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Equal(t, model.StrategyExactReference, out[0].Strategy)
}

func TestAggregate_TiesKeepInsertionOrder(t *testing.T) {
	// Equal confidence: the strategy that ran first wins the earlier slot.
	input := []model.Suggestion{
		suggestion(1, 0.8, model.StrategyExactReference),
		suggestion(2, 0.8, model.StrategyAmountDate),
	}

	out := Aggregate(input, 10)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].LedgerEntryID)
	assert.Equal(t, int64(2), out[1].LedgerEntryID)
}

func TestAggregate_TruncatesToMax(t *testing.T) {
	var input []model.Suggestion
	for i := int64(1); i <= 25; i++ {
		input = append(input, suggestion(i, 0.9-float64(i)*0.01, model.StrategySemantic))
	}

	out := Aggregate(input, 10)
	assert.Len(t, out, 10)
	assert.Equal(t, int64(1), out[0].LedgerEntryID)
}

func TestAggregate_Idempotent(t *testing.T) {
	input := []model.Suggestion{
		suggestion(1, 0.7, model.StrategyAmountDate),
		suggestion(2, 0.9, model.StrategyExactReference),
		suggestion(1, 0.6, model.StrategySemantic),
	}

	first := Aggregate(input, 10)
	second := Aggregate(input, 10)
	assert.Equal(t, first, second)

	// Aggregating an already-aggregated list changes nothing.
	assert.Equal(t, first, Aggregate(first, 10))
}

func TestAggregate_Empty(t *testing.T) {
	assert.Nil(t, Aggregate(nil, 10))
}

func TestDisposition(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		confidence float64
		wantState  model.ReconcileState
		wantConf   float64
		wantMatch  bool
	}{
		{"well above threshold", 0.95, model.StateMatched, 0.95, true},
		{"exactly at threshold is matched", 0.8, model.StateMatched, 0.8, true},
		{"just below threshold is uncertain", 0.8 - 1e-9, model.StateUncertain, 0.8 - 1e-9, false},
		{"at uncertain floor", 0.5, model.StateUncertain, 0.5, false},
		{"below floor is not matched", 0.49, model.StateNotMatched, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, confidence, entryID := Disposition([]model.Suggestion{
				suggestion(7, tt.confidence, model.StrategyAmountDate),
			}, cfg)

			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantConf, confidence)
			if tt.wantMatch {
				require.NotNil(t, entryID)
				assert.Equal(t, int64(7), *entryID)
			} else {
				assert.Nil(t, entryID)
			}
		})
	}
}

func TestDisposition_NoSuggestions(t *testing.T) {
	state, confidence, entryID := Disposition(nil, DefaultConfig())
	assert.Equal(t, model.StateNotMatched, state)
	assert.Equal(t, 0.0, confidence)
	assert.Nil(t, entryID)
}
