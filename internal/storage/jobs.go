package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
)

// CreateJob inserts a new import job.
func (s *SQLiteStorage) CreateJob(ctx context.Context, job *model.ImportJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if job == nil || job.ID == "" {
		return fmt.Errorf("job with id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_jobs (
			id, name, file_name, file_type, file_data, journal_id, company_id,
			state, statement_id, period_start, period_end,
			opening_balance, closing_balance, auto_reconcile, use_ai,
			processing_log, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.FileName, string(job.FileType), job.FileData,
		job.JournalID, job.CompanyID, string(job.State), job.StatementID,
		nullTime(job.PeriodStart), nullTime(job.PeriodEnd),
		job.OpeningBalance.String(), job.ClosingBalance.String(),
		job.AutoReconcile, job.UseAI,
		job.ProcessingLog, job.LastError, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: job %s", common.ErrDuplicateEntry, job.ID)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob loads one import job by id.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*model.ImportJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, file_name, file_type, file_data, journal_id, company_id,
		       state, statement_id, period_start, period_end,
		       opening_balance, closing_balance, auto_reconcile, use_ai,
		       processing_log, last_error, created_at, updated_at
		FROM import_jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return job, err
}

// UpdateJob persists the job's mutable fields.
func (s *SQLiteStorage) UpdateJob(ctx context.Context, job *model.ImportJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs SET
			name = ?, file_name = ?, file_type = ?, file_data = ?,
			journal_id = ?, state = ?, statement_id = ?,
			period_start = ?, period_end = ?,
			opening_balance = ?, closing_balance = ?,
			auto_reconcile = ?, use_ai = ?,
			processing_log = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		job.Name, job.FileName, string(job.FileType), job.FileData,
		job.JournalID, string(job.State), job.StatementID,
		nullTime(job.PeriodStart), nullTime(job.PeriodEnd),
		job.OpeningBalance.String(), job.ClosingBalance.String(),
		job.AutoReconcile, job.UseAI,
		job.ProcessingLog, job.LastError, job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s: %w", job.ID, common.ErrNotFound)
	}
	return nil
}

// ListJobs returns the most recent jobs for a company.
func (s *SQLiteStorage) ListJobs(ctx context.Context, companyID int64, limit int) ([]model.ImportJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, file_name, file_type, file_data, journal_id, company_id,
		       state, statement_id, period_start, period_end,
		       opening_balance, closing_balance, auto_reconcile, use_ai,
		       processing_log, last_error, created_at, updated_at
		FROM import_jobs
		WHERE company_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.ImportJob
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.ImportJob, error) {
	var (
		job            model.ImportJob
		fileType       string
		state          string
		statementID    sql.NullInt64
		periodStart    sql.NullTime
		periodEnd      sql.NullTime
		openingBalance string
		closingBalance string
		fileName       sql.NullString
		journalID      sql.NullString
		processingLog  sql.NullString
		lastError      sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.Name, &fileName, &fileType, &job.FileData, &journalID,
		&job.CompanyID, &state, &statementID, &periodStart, &periodEnd,
		&openingBalance, &closingBalance, &job.AutoReconcile, &job.UseAI,
		&processingLog, &lastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.FileName = fileName.String
	job.JournalID = journalID.String
	job.ProcessingLog = processingLog.String
	job.LastError = lastError.String
	job.FileType = model.FileType(fileType)
	job.State = model.JobState(state)
	if statementID.Valid {
		job.StatementID = &statementID.Int64
	}
	if periodStart.Valid {
		job.PeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		job.PeriodEnd = &periodEnd.Time
	}
	if job.OpeningBalance, err = decimal.NewFromString(openingBalance); err != nil {
		return nil, fmt.Errorf("bad opening balance: %w", err)
	}
	if job.ClosingBalance, err = decimal.NewFromString(closingBalance); err != nil {
		return nil, fmt.Errorf("bad closing balance: %w", err)
	}
	return &job, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
