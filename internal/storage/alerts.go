package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
)

// SaveAlerts inserts a batch of alerts.
func (s *SQLiteStorage) SaveAlerts(ctx context.Context, alerts []model.Alert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alerts (job_id, transaction_id, type, severity, state, message, resolution_note, resolved_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range alerts {
		a := &alerts[i]
		if _, err := stmt.ExecContext(ctx,
			a.JobID, a.TransactionID, string(a.Type), string(a.Severity),
			string(a.State), a.Message, a.ResolutionNote, nullTime(a.ResolvedAt),
			a.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}

	return tx.Commit()
}

// GetAlerts returns a job's alerts, most severe first.
func (s *SQLiteStorage) GetAlerts(ctx context.Context, jobID string) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, transaction_id, type, severity, state, message,
		       resolution_note, resolved_at, created_at
		FROM alerts
		WHERE job_id = ?
		ORDER BY CASE severity WHEN 'error' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		var (
			a              model.Alert
			alertType      string
			severity       string
			state          string
			resolutionNote sql.NullString
			resolvedAt     sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.JobID, &a.TransactionID, &alertType,
			&severity, &state, &a.Message, &resolutionNote, &resolvedAt,
			&a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = model.AlertType(alertType)
		a.Severity = model.AlertSeverity(severity)
		a.State = model.AlertState(state)
		a.ResolutionNote = resolutionNote.String
		if resolvedAt.Valid {
			a.ResolvedAt = &resolvedAt.Time
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DeleteAlerts removes every alert of a job.
func (s *SQLiteStorage) DeleteAlerts(ctx context.Context, jobID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete alerts: %w", err)
	}
	return nil
}

// ResolveAlert marks one alert resolved with a note.
func (s *SQLiteStorage) ResolveAlert(ctx context.Context, id int64, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET state = ?, resolution_note = ?, resolved_at = ? WHERE id = ?`,
		string(model.AlertResolved), note, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("alert %d: %w", id, common.ErrNotFound)
	}
	return nil
}
