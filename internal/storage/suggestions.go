package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rnicolet/bankmatch/internal/model"
)

// SaveSuggestions inserts a batch of suggestions.
func (s *SQLiteStorage) SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(suggestions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO suggestions (transaction_id, ledger_entry_id, strategy, confidence, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range suggestions {
		sg := &suggestions[i]
		if _, err := stmt.ExecContext(ctx,
			sg.TransactionID, sg.LedgerEntryID, string(sg.Strategy),
			sg.Confidence, sg.Reason, sg.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert suggestion: %w", err)
		}
	}

	return tx.Commit()
}

// GetSuggestions returns a transaction's suggestions, best first.
func (s *SQLiteStorage) GetSuggestions(ctx context.Context, transactionID string) ([]model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, ledger_entry_id, strategy, confidence, reason, created_at
		FROM suggestions
		WHERE transaction_id = ?
		ORDER BY confidence DESC, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.Suggestion
	for rows.Next() {
		var (
			sg       model.Suggestion
			strategy string
			reason   sql.NullString
		)
		if err := rows.Scan(&sg.ID, &sg.TransactionID, &sg.LedgerEntryID,
			&strategy, &sg.Confidence, &reason, &sg.CreatedAt); err != nil {
			return nil, err
		}
		sg.Strategy = model.MatchStrategy(strategy)
		sg.Reason = reason.String
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}

// DeleteSuggestions removes every suggestion of a transaction.
func (s *SQLiteStorage) DeleteSuggestions(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM suggestions WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete suggestions: %w", err)
	}
	return nil
}
