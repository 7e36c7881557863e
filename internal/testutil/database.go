// Package testutil provides shared test helpers for packages that need a
// migrated database.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/storage"
)

// SetupTestDB creates a migrated in-memory database and registers cleanup.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Logf("failed to close store: %v", closeErr)
		}
	})
	return store
}

// SeedJob creates a draft import job with sensible defaults.
func SeedJob(t *testing.T, store *storage.SQLiteStorage, id string) *model.ImportJob {
	t.Helper()

	job := &model.ImportJob{
		ID:        id,
		Name:      "test job " + id,
		JournalID: "BNK1",
		CompanyID: 1,
		State:     model.JobDraft,
		FileType:  model.FileAuto,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	return job
}

// SeedLedgerEntry creates an open debit-side ledger entry and returns its id.
func SeedLedgerEntry(t *testing.T, store *storage.SQLiteStorage, name, reference, amount string, date time.Time) int64 {
	t.Helper()

	entry := &model.LedgerEntry{
		CompanyID: 1,
		Date:      date,
		Name:      name,
		Reference: reference,
		Debit:     decimal.RequireFromString(amount),
		Credit:    decimal.Zero,
	}
	if err := store.CreateLedgerEntry(context.Background(), entry); err != nil {
		t.Fatalf("failed to seed ledger entry: %v", err)
	}
	return entry.ID
}
