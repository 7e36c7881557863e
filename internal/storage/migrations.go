package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS import_jobs (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					file_name TEXT,
					file_type TEXT NOT NULL DEFAULT 'auto',
					file_data BLOB,
					journal_id TEXT,
					company_id INTEGER NOT NULL,
					state TEXT NOT NULL DEFAULT 'draft',
					statement_id INTEGER,
					period_start DATETIME,
					period_end DATETIME,
					opening_balance TEXT NOT NULL DEFAULT '0',
					closing_balance TEXT NOT NULL DEFAULT '0',
					auto_reconcile INTEGER NOT NULL DEFAULT 0,
					use_ai INTEGER NOT NULL DEFAULT 0,
					processing_log TEXT,
					last_error TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_import_jobs_company ON import_jobs(company_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					job_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					reference TEXT,
					partner_name TEXT,
					partner_id INTEGER,
					account_number TEXT,
					amount TEXT NOT NULL,
					sequence INTEGER NOT NULL DEFAULT 0,
					dedup_key TEXT NOT NULL,
					is_duplicate INTEGER NOT NULL DEFAULT 0,
					state TEXT NOT NULL DEFAULT 'not_matched',
					confidence REAL NOT NULL DEFAULT 0,
					matched_entry_id INTEGER,
					note TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (job_id) REFERENCES import_jobs(id)
				)`,
				`CREATE INDEX idx_transactions_job ON transactions(job_id)`,
				`CREATE INDEX idx_transactions_dedup ON transactions(dedup_key)`,

				`CREATE TABLE IF NOT EXISTS suggestions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					ledger_entry_id INTEGER NOT NULL,
					strategy TEXT NOT NULL,
					confidence REAL NOT NULL,
					reason TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_suggestions_transaction ON suggestions(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Reconciliation rules and alerts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					type TEXT NOT NULL,
					sequence INTEGER NOT NULL DEFAULT 10,
					active INTEGER NOT NULL DEFAULT 1,
					company_id INTEGER,
					journal_ids TEXT,
					reference_pattern TEXT,
					description_keywords TEXT,
					partner_keywords TEXT,
					amount_min REAL,
					amount_max REAL,
					confidence_boost REAL NOT NULL DEFAULT 0,
					stamp_partner_id INTEGER,
					stamp_account_id INTEGER,
					match_count INTEGER NOT NULL DEFAULT 0,
					last_matched_at DATETIME,
					note TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_company ON rules(company_id)`,

				`CREATE TABLE IF NOT EXISTS alerts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					job_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					type TEXT NOT NULL,
					severity TEXT NOT NULL,
					state TEXT NOT NULL DEFAULT 'new',
					message TEXT NOT NULL,
					resolution_note TEXT,
					resolved_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (job_id) REFERENCES import_jobs(id)
				)`,
				`CREATE INDEX idx_alerts_job ON alerts(job_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Ledger entries, statements and statement lines",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS ledger_entries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					company_id INTEGER NOT NULL,
					date DATETIME NOT NULL,
					name TEXT NOT NULL,
					reference TEXT,
					partner_id INTEGER,
					partner_name TEXT,
					account_type TEXT,
					debit TEXT NOT NULL DEFAULT '0',
					credit TEXT NOT NULL DEFAULT '0',
					reconciled INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_ledger_entries_reference ON ledger_entries(company_id, reference)`,
				`CREATE INDEX idx_ledger_entries_date ON ledger_entries(company_id, date)`,

				`CREATE TABLE IF NOT EXISTS ledger_statements (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					journal_id TEXT,
					date DATETIME NOT NULL,
					opening_balance TEXT NOT NULL DEFAULT '0',
					closing_balance TEXT NOT NULL DEFAULT '0',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS ledger_statement_lines (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					statement_id INTEGER NOT NULL,
					date DATETIME NOT NULL,
					amount TEXT NOT NULL,
					reference TEXT,
					payment_ref TEXT,
					partner_name TEXT,
					partner_id INTEGER,
					dedup_key TEXT,
					reconciled_with_id INTEGER,
					FOREIGN KEY (statement_id) REFERENCES ledger_statements(id)
				)`,
				`CREATE INDEX idx_statement_lines_statement ON ledger_statement_lines(statement_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the latest version. Each
// migration runs in its own transaction and bumps PRAGMA user_version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}
