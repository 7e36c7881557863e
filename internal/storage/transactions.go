package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
)

// SaveTransactions inserts a batch of statement lines in one transaction.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, job_id, date, description, reference, partner_name, partner_id,
			account_number, amount, sequence, dedup_key, is_duplicate,
			state, confidence, matched_entry_id, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.JobID, txn.Date, txn.Description, txn.Reference,
			txn.PartnerName, txn.PartnerID, txn.AccountNumber,
			txn.Amount.String(), txn.Sequence, txn.DedupKey, txn.IsDuplicate,
			string(txn.State), txn.Confidence, txn.MatchedEntryID, txn.Note,
			txn.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns a job's lines in statement order.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, jobID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, date, description, reference, partner_name, partner_id,
		       account_number, amount, sequence, dedup_key, is_duplicate,
		       state, confidence, matched_entry_id, note, created_at
		FROM transactions
		WHERE job_id = ?
		ORDER BY sequence`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn            model.Transaction
			reference      sql.NullString
			partnerName    sql.NullString
			partnerID      sql.NullInt64
			accountNumber  sql.NullString
			amount         string
			state          string
			matchedEntryID sql.NullInt64
			note           sql.NullString
		)
		if err := rows.Scan(
			&txn.ID, &txn.JobID, &txn.Date, &txn.Description, &reference,
			&partnerName, &partnerID, &accountNumber, &amount, &txn.Sequence,
			&txn.DedupKey, &txn.IsDuplicate, &state, &txn.Confidence,
			&matchedEntryID, &note, &txn.CreatedAt,
		); err != nil {
			return nil, err
		}
		txn.Reference = reference.String
		txn.PartnerName = partnerName.String
		txn.AccountNumber = accountNumber.String
		txn.Note = note.String
		txn.State = model.ReconcileState(state)
		if partnerID.Valid {
			txn.PartnerID = &partnerID.Int64
		}
		if matchedEntryID.Valid {
			txn.MatchedEntryID = &matchedEntryID.Int64
		}
		if txn.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount on transaction %s: %w", txn.ID, err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// UpdateTransactionMatch persists the reconciliation outcome of one line.
func (s *SQLiteStorage) UpdateTransactionMatch(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			state = ?, confidence = ?, matched_entry_id = ?, partner_id = ?, note = ?
		WHERE id = ?`,
		string(txn.State), txn.Confidence, txn.MatchedEntryID, txn.PartnerID, txn.Note, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteTransactions removes every line of a job, suggestions first.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, jobID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM suggestions WHERE transaction_id IN
			(SELECT id FROM transactions WHERE job_id = ?)`, jobID); err != nil {
		return fmt.Errorf("failed to delete suggestions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}

	return tx.Commit()
}

// CountByDedupKey counts lines sharing a dedup key, excluding one id, across
// all jobs. Used to flag re-imports.
func (s *SQLiteStorage) CountByDedupKey(ctx context.Context, dedupKey, excludeID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE dedup_key = ? AND id != ?`,
		dedupKey, excludeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dedup keys: %w", err)
	}
	return count, nil
}
