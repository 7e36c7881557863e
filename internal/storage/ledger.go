package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/model"
)

const ledgerColumns = `id, company_id, date, name, reference, partner_id,
	partner_name, account_type, debit, credit, reconciled`

// CreateLedgerEntry inserts an open journal entry. Used for seeding and
// tests; production entries come from the accounting side.
func (s *SQLiteStorage) CreateLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			company_id, date, name, reference, partner_id, partner_name,
			account_type, debit, credit, reconciled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CompanyID, entry.Date, entry.Name, entry.Reference,
		entry.PartnerID, entry.PartnerName, entry.AccountType,
		entry.Debit.String(), entry.Credit.String(), entry.Reconciled,
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	entry.ID, err = result.LastInsertId()
	return err
}

// FindByReference returns open entries whose reference equals the given one,
// case-sensitively.
func (s *SQLiteStorage) FindByReference(ctx context.Context, companyID int64, reference string, limit int) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE company_id = ? AND reconciled = 0 AND reference = ?
		 ORDER BY date, id LIMIT ?`, companyID, reference, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	return collectEntries(rows, nil)
}

// FindByAmountInWindow returns open entries in the date window whose amount
// on the given side equals the target exactly. The amount comparison happens
// on decimals, not on SQL text.
func (s *SQLiteStorage) FindByAmountInWindow(ctx context.Context, companyID int64, amount decimal.Decimal, side model.LedgerSide, from, to time.Time, limit int) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE company_id = ? AND reconciled = 0 AND date >= ? AND date <= ?
		 ORDER BY date, id`, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	return collectEntries(rows, amountFilter(amount, side, limit))
}

// FindByPartnerAmount is FindByAmountInWindow scoped to one partner.
func (s *SQLiteStorage) FindByPartnerAmount(ctx context.Context, companyID, partnerID int64, amount decimal.Decimal, side model.LedgerSide, from, to time.Time, limit int) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE company_id = ? AND reconciled = 0 AND partner_id = ?
		   AND date >= ? AND date <= ?
		 ORDER BY date, id`, companyID, partnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	return collectEntries(rows, amountFilter(amount, side, limit))
}

// FindOpenInWindow returns open entries in the date window.
func (s *SQLiteStorage) FindOpenInWindow(ctx context.Context, companyID int64, from, to time.Time, limit int) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE company_id = ? AND reconciled = 0 AND date >= ? AND date <= ?
		 ORDER BY date, id LIMIT ?`, companyID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	return collectEntries(rows, nil)
}

// CreateStatement inserts the materialized statement and assigns its id.
func (s *SQLiteStorage) CreateStatement(ctx context.Context, statement *model.LedgerStatement) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_statements (name, journal_id, date, opening_balance, closing_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		statement.Name, statement.JournalID, statement.Date,
		statement.OpeningBalance.String(), statement.ClosingBalance.String(),
		statement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	statement.ID, err = result.LastInsertId()
	return err
}

// CreateStatementLine inserts one materialized statement line.
func (s *SQLiteStorage) CreateStatementLine(ctx context.Context, line *model.LedgerStatementLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_statement_lines (
			statement_id, date, amount, reference, payment_ref,
			partner_name, partner_id, dedup_key, reconciled_with_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.StatementID, line.Date, line.Amount.String(), line.Reference,
		line.PaymentRef, line.PartnerName, line.PartnerID, line.DedupKey,
		line.ReconciledWithID,
	)
	if err != nil {
		return fmt.Errorf("failed to create statement line: %w", err)
	}
	line.ID, err = result.LastInsertId()
	return err
}

// MarkReconciled closes a ledger entry so later matching passes skip it.
func (s *SQLiteStorage) MarkReconciled(ctx context.Context, entryID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE ledger_entries SET reconciled = 1 WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("failed to mark entry reconciled: %w", err)
	}
	return nil
}

// entryFilter optionally rejects scanned entries and bounds the result size.
type entryFilter struct {
	keep  func(*model.LedgerEntry) bool
	limit int
}

func amountFilter(amount decimal.Decimal, side model.LedgerSide, limit int) *entryFilter {
	return &entryFilter{
		limit: limit,
		keep: func(e *model.LedgerEntry) bool {
			switch side {
			case model.SideDebit:
				return e.Debit.Equal(amount)
			default:
				return e.Credit.Equal(amount)
			}
		},
	}
}

func collectEntries(rows *sql.Rows, filter *entryFilter) ([]model.LedgerEntry, error) {
	defer func() { _ = rows.Close() }()

	var entries []model.LedgerEntry
	for rows.Next() {
		var (
			entry       model.LedgerEntry
			reference   sql.NullString
			partnerID   sql.NullInt64
			partnerName sql.NullString
			accountType sql.NullString
			debit       string
			credit      string
		)
		if err := rows.Scan(&entry.ID, &entry.CompanyID, &entry.Date,
			&entry.Name, &reference, &partnerID, &partnerName, &accountType,
			&debit, &credit, &entry.Reconciled); err != nil {
			return nil, err
		}
		entry.Reference = reference.String
		entry.PartnerName = partnerName.String
		entry.AccountType = accountType.String
		if partnerID.Valid {
			entry.PartnerID = &partnerID.Int64
		}
		var err error
		if entry.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("bad debit on entry %d: %w", entry.ID, err)
		}
		if entry.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("bad credit on entry %d: %w", entry.ID, err)
		}

		if filter != nil && !filter.keep(&entry) {
			continue
		}
		entries = append(entries, entry)
		if filter != nil && filter.limit > 0 && len(entries) == filter.limit {
			break
		}
	}
	return entries, rows.Err()
}
