package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/rnicolet/bankmatch/internal/ai"
	"github.com/rnicolet/bankmatch/internal/config"
	"github.com/rnicolet/bankmatch/internal/importer"
	"github.com/rnicolet/bankmatch/internal/match"
	"github.com/rnicolet/bankmatch/internal/ocr"
	"github.com/rnicolet/bankmatch/internal/parse"
	"github.com/rnicolet/bankmatch/internal/rules"
	"github.com/rnicolet/bankmatch/internal/storage"
)

// openStorage opens the configured SQLite database. Callers own Close.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath(viper.GetString("database.path"))
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// matchConfig builds the engine tuning from config, falling back to the
// defaults for anything unset.
func matchConfig() match.Config {
	cfg := match.DefaultConfig()
	if v := viper.GetFloat64("matching.match_threshold"); v > 0 {
		cfg.MatchThreshold = v
	}
	if v := viper.GetFloat64("matching.uncertain_floor"); v > 0 {
		cfg.UncertainFloor = v
	}
	if v := viper.GetInt("matching.amount_date_window_days"); v > 0 {
		cfg.AmountDateWindowDays = v
	}
	if v := viper.GetInt("matching.partner_amount_window_days"); v > 0 {
		cfg.PartnerAmountWindowDays = v
	}
	if v := viper.GetInt("matching.semantic_window_days"); v > 0 {
		cfg.SemanticWindowDays = v
	}
	if v := viper.GetInt("matching.max_suggestions"); v > 0 {
		cfg.MaxSuggestions = v
	}
	return cfg
}

// buildAIClient creates the configured AI collaborator, or nil when no
// provider is configured or the client cannot be created.
func buildAIClient() ai.Client {
	provider := viper.GetString("ai.provider")
	if provider == "" {
		return nil
	}

	client, err := ai.NewClient(ai.Config{
		Provider:   provider,
		APIKey:     viper.GetString("ai.api_key"),
		Model:      viper.GetString("ai.model"),
		MaxRetries: viper.GetInt("ai.max_retries"),
		RateLimit:  viper.GetInt("ai.rate_limit"),
	})
	if err != nil {
		slog.Warn("AI assistance disabled", "error", err)
		return nil
	}
	return client
}

// buildParser assembles the statement parser with the optional AI and OCR
// collaborators.
func buildParser(aiClient ai.Client) *parse.Parser {
	var opts []parse.Option

	if aiClient != nil {
		opts = append(opts, parse.WithAIClient(aiClient))
	}

	if viper.GetBool("ocr.enabled") {
		language := viper.GetString("ocr.language")
		if language == "" {
			language = "eng"
		}
		opts = append(opts, parse.WithOCR(ocr.NewCommandExtractor(), language))
	}

	return parse.NewParser(opts...)
}

// buildImporter wires the full reconciliation pipeline on top of the store.
// The AI client serves both PDF extraction and semantic match scoring; the
// importer only uses it on jobs that opted in, everything else runs on the
// deterministic scorer.
func buildImporter(store *storage.SQLiteStorage) *importer.Importer {
	cfg := matchConfig()
	matcher := match.NewEngine(store, match.NewLocalScorer(), cfg)
	ruleEngine := rules.NewEngine(store)

	opts := []importer.Option{importer.WithProgress(os.Stderr)}
	aiClient := buildAIClient()
	if aiClient != nil {
		opts = append(opts, importer.WithAIScorer(aiClient))
	}

	return importer.New(
		store, store, store, store, store,
		buildParser(aiClient), matcher, ruleEngine, cfg,
		opts...,
	)
}
