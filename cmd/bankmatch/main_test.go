package main

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnicolet/bankmatch/internal/model"
)

func useTempDatabase(t *testing.T) {
	t.Helper()
	viper.Reset()
	viper.Set("database.path", filepath.Join(t.TempDir(), "bankmatch.db"))
	t.Cleanup(viper.Reset)
}

func TestMatchConfig_Defaults(t *testing.T) {
	useTempDatabase(t)

	cfg := matchConfig()
	assert.Equal(t, 0.8, cfg.MatchThreshold)
	assert.Equal(t, 0.5, cfg.UncertainFloor)
	assert.Equal(t, 7, cfg.AmountDateWindowDays)
}

func TestMatchConfig_Overrides(t *testing.T) {
	useTempDatabase(t)
	viper.Set("matching.match_threshold", 0.9)
	viper.Set("matching.amount_date_window_days", 3)

	cfg := matchConfig()
	assert.Equal(t, 0.9, cfg.MatchThreshold)
	assert.Equal(t, 3, cfg.AmountDateWindowDays)
	assert.Equal(t, 0.5, cfg.UncertainFloor, "unset values keep defaults")
}

func TestBuildAIClient(t *testing.T) {
	useTempDatabase(t)
	assert.Nil(t, buildAIClient(), "no provider configured")

	viper.Set("ai.provider", "anthropic")
	assert.Nil(t, buildAIClient(), "missing API key disables AI assistance")

	viper.Set("ai.api_key", "test-key")
	assert.NotNil(t, buildAIClient())
}

func TestRulesAddCommand(t *testing.T) {
	useTempDatabase(t)
	ctx := context.Background()

	store, err := openStorage()
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Close())

	cmd := rulesAddCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{
		"--name", "Supplier invoices",
		"--type", "reference_pattern",
		"--pattern", `^INV-\d+`,
		"--boost", "0.2",
		"--sequence", "10",
	})
	require.NoError(t, cmd.Execute())

	store, err = openStorage()
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ruleSet, err := store.GetActiveRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ruleSet, 1)
	assert.Equal(t, "Supplier invoices", ruleSet[0].Name)
	assert.Equal(t, model.RuleReferencePattern, ruleSet[0].Type)
	assert.Equal(t, 0.2, ruleSet[0].ConfidenceBoost)
}

func TestRulesAddCommand_InvalidRuleRejected(t *testing.T) {
	useTempDatabase(t)
	ctx := context.Background()

	store, err := openStorage()
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Close())

	cmd := rulesAddCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{"--name", "broken", "--type", "reference_pattern"})
	assert.Error(t, cmd.Execute(), "pattern rule without a pattern is invalid")
}

func TestRulesTestCommand(t *testing.T) {
	useTempDatabase(t)
	ctx := context.Background()

	store, err := openStorage()
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	rule := &model.Rule{
		Name:             "Supplier invoices",
		Type:             model.RuleReferencePattern,
		ReferencePattern: `^INV-\d+`,
		Active:           true,
	}
	require.NoError(t, store.CreateRule(ctx, rule))
	require.NoError(t, store.Close())

	cmd := rulesTestCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{
		strconv.FormatInt(rule.ID, 10),
		"--reference", "INV-42",
		"--description", "payment",
		"--amount", "99.50",
	})
	require.NoError(t, cmd.Execute())
}

func TestLedgerAddCommand(t *testing.T) {
	useTempDatabase(t)
	ctx := context.Background()

	store, err := openStorage()
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Close())

	cmd := ledgerAddCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{
		"--name", "INV-100 ACME",
		"--reference", "INV-100",
		"--date", "2024-03-10",
		"--debit", "150.00",
	})
	require.NoError(t, cmd.Execute())

	store, err = openStorage()
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	entries, err := store.FindByReference(ctx, 1, "INV-100", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "INV-100 ACME", entries[0].Name)
	assert.True(t, entries[0].Date.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}
