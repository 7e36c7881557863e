package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/service"
)

type flakyClient struct {
	err      error
	failures int
	calls    int
}

func (f *flakyClient) ExtractTransactions(_ context.Context, _ string) ([]ExtractedTransaction, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("transient failure")
	}
	return []ExtractedTransaction{{Date: "01/03/2024", Name: "VIR", Amount: 10}}, nil
}

func (f *flakyClient) ScoreMatch(_ context.Context, _ MatchPair) (MatchScore, error) {
	f.calls++
	if f.calls <= f.failures {
		return MatchScore{}, errors.New("transient failure")
	}
	return MatchScore{Score: 0.7, Reason: "ok"}, nil
}

func governed(inner Client, maxAttempts int) *governedClient {
	return &governedClient{
		inner:   inner,
		limiter: newRateLimiter(6000),
		retry: service.RetryOptions{
			MaxAttempts:  maxAttempts,
			InitialDelay: time.Millisecond,
		},
	}
}

func TestGovernedClient_RetriesUntilSuccess(t *testing.T) {
	inner := &flakyClient{failures: 2}
	g := governed(inner, 3)

	txns, err := g.ExtractTransactions(context.Background(), "statement text")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestGovernedClient_ExhaustionIsCollaboratorError(t *testing.T) {
	inner := &flakyClient{failures: 10}
	g := governed(inner, 2)

	_, err := g.ScoreMatch(context.Background(), MatchPair{})
	require.Error(t, err)
	assert.True(t, common.IsCollaboratorError(err))
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 2, inner.calls)
}

func TestGovernedClient_NonRetryableStopsImmediately(t *testing.T) {
	inner := &flakyClient{
		failures: 10,
		err:      &common.RetryableError{Err: errors.New("bad request"), Retryable: false},
	}
	g := governed(inner, 3)

	_, err := g.ExtractTransactions(context.Background(), "statement text")
	require.Error(t, err)
	assert.True(t, common.IsCollaboratorError(err))
	assert.Equal(t, 1, inner.calls)
}

func TestClassifyHTTPStatus(t *testing.T) {
	assert.NoError(t, classifyHTTPStatus("openai", http.StatusOK, nil))

	err := classifyHTTPStatus("openai", http.StatusTooManyRequests, nil)
	assert.ErrorIs(t, err, common.ErrRateLimit)

	err = classifyHTTPStatus("anthropic", http.StatusUnauthorized, []byte("nope"))
	var retryable *common.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.False(t, retryable.Retryable)

	err = classifyHTTPStatus("anthropic", http.StatusBadGateway, nil)
	require.Error(t, err)
	assert.False(t, errors.As(err, &retryable))
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{Provider: "anthropic"})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient(Config{Provider: "openai"})
	require.ErrorIs(t, err, common.ErrMissingConfig)
}
