// Package ai provides the external text-understanding collaborator used for
// statement extraction and semantic match scoring. It supports the OpenAI
// and Anthropic APIs with retry and rate limiting. Every call is fallible
// and callers must select a deterministic fallback on failure.
package ai

import (
	"context"
	"time"
)

// ExtractedTransaction is one transaction pulled out of raw statement text.
type ExtractedTransaction struct {
	Date   string  `json:"date"`
	Name   string  `json:"name"`
	Ref    string  `json:"ref"`
	Amount float64 `json:"amount"`
}

// MatchPair describes a bank transaction and a candidate ledger entry for
// similarity scoring.
type MatchPair struct {
	BankDescription string
	BankAmount      string
	BankDate        string
	EntryName       string
	EntryReference  string
	EntryAmount     string
	EntryDate       string
	EntryPartner    string
}

// MatchScore is the collaborator's judgment of a pair.
type MatchScore struct {
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// Client defines the interface for AI providers.
type Client interface {
	ExtractTransactions(ctx context.Context, text string) ([]ExtractedTransaction, error)
	ScoreMatch(ctx context.Context, pair MatchPair) (MatchScore, error)
}

// Config holds configuration for an AI client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}
