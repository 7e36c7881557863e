package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/service"
)

// NewClient creates an AI client for the configured provider, wrapped with
// rate limiting and retry.
func NewClient(cfg Config) (Client, error) {
	var inner Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		inner, err = newOpenAIClient(cfg)
	case "anthropic":
		inner, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	return &governedClient{
		inner:   inner,
		limiter: newRateLimiter(cfg.RateLimit),
		retry: service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: retryDelay,
		},
	}, nil
}

// governedClient applies rate limiting and bounded retry around a provider
// client. Exhausted retries surface as a collaborator error so callers fall
// back to their deterministic path.
type governedClient struct {
	inner   Client
	limiter *rateLimiter
	retry   service.RetryOptions
}

func (g *governedClient) call(ctx context.Context, op func() error) error {
	err := common.WithRetry(ctx, func() error {
		if waitErr := g.limiter.wait(ctx); waitErr != nil {
			return &common.RetryableError{Err: waitErr, Retryable: false}
		}
		return op()
	}, g.retry)
	if err != nil {
		return common.NewCollaboratorError("ai", err)
	}
	return nil
}

// classifyHTTPStatus maps a provider response code to a retry class: 429 is
// the rate-limit sentinel, other client errors never retry, server errors do.
func classifyHTTPStatus(provider string, status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s API: %w", provider, common.ErrRateLimit)
	case status >= 400 && status < 500:
		return &common.RetryableError{
			Err:       fmt.Errorf("%s API error (status %d): %s", provider, status, body),
			Retryable: false,
		}
	default:
		return fmt.Errorf("%s API error (status %d): %s", provider, status, body)
	}
}

func (g *governedClient) ExtractTransactions(ctx context.Context, text string) ([]ExtractedTransaction, error) {
	var result []ExtractedTransaction
	err := g.call(ctx, func() error {
		var callErr error
		result, callErr = g.inner.ExtractTransactions(ctx, text)
		return callErr
	})
	return result, err
}

func (g *governedClient) ScoreMatch(ctx context.Context, pair MatchPair) (MatchScore, error) {
	var result MatchScore
	err := g.call(ctx, func() error {
		var callErr error
		result, callErr = g.inner.ScoreMatch(ctx, pair)
		return callErr
	})
	return result, err
}
