package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
)

// CreateRule validates and inserts a rule, assigning its id.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRule, err)
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (
			name, type, sequence, active, company_id, journal_ids,
			reference_pattern, description_keywords, partner_keywords,
			amount_min, amount_max, confidence_boost,
			stamp_partner_id, stamp_account_id, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, string(rule.Type), rule.Sequence, rule.Active,
		rule.CompanyID, joinJournals(rule.JournalIDs),
		rule.ReferencePattern, rule.DescriptionKeywords, rule.PartnerKeywords,
		rule.AmountMin, rule.AmountMax, rule.ConfidenceBoost,
		rule.StampPartnerID, rule.StampAccountID, rule.Note,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	rule.ID, err = result.LastInsertId()
	return err
}

const ruleColumns = `id, name, type, sequence, active, company_id, journal_ids,
	reference_pattern, description_keywords, partner_keywords,
	amount_min, amount_max, confidence_boost,
	stamp_partner_id, stamp_account_id, match_count, last_matched_at,
	note, created_at, updated_at`

// GetRule loads one rule by id.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return rule, err
}

// GetActiveRules returns active rules in scope for a company: the company's
// own rules plus global ones, ordered by sequence then id.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context, companyID int64) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM rules
		 WHERE active = 1 AND (company_id IS NULL OR company_id = ?)
		 ORDER BY sequence, id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleSet []model.Rule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		ruleSet = append(ruleSet, *rule)
	}
	return ruleSet, rows.Err()
}

// UpdateRule persists a rule's configuration.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRule, err)
	}

	rule.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE rules SET
			name = ?, type = ?, sequence = ?, active = ?, company_id = ?,
			journal_ids = ?, reference_pattern = ?, description_keywords = ?,
			partner_keywords = ?, amount_min = ?, amount_max = ?,
			confidence_boost = ?, stamp_partner_id = ?, stamp_account_id = ?,
			note = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, string(rule.Type), rule.Sequence, rule.Active,
		rule.CompanyID, joinJournals(rule.JournalIDs),
		rule.ReferencePattern, rule.DescriptionKeywords, rule.PartnerKeywords,
		rule.AmountMin, rule.AmountMax, rule.ConfidenceBoost,
		rule.StampPartnerID, rule.StampAccountID, rule.Note, rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", rule.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

// RecordMatch bumps a rule's usage counter and last-matched timestamp. This
// is the only write path for those fields.
func (s *SQLiteStorage) RecordMatch(ctx context.Context, id int64, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE rules SET match_count = match_count + 1, last_matched_at = ? WHERE id = ?`,
		at, id)
	if err != nil {
		return fmt.Errorf("failed to record rule match: %w", err)
	}
	return nil
}

func scanRule(row rowScanner) (*model.Rule, error) {
	var (
		rule          model.Rule
		ruleType      string
		companyID     sql.NullInt64
		journalIDs    sql.NullString
		refPattern    sql.NullString
		descKeywords  sql.NullString
		partnerKw     sql.NullString
		amountMin     sql.NullFloat64
		amountMax     sql.NullFloat64
		stampPartner  sql.NullInt64
		stampAccount  sql.NullInt64
		lastMatchedAt sql.NullTime
		note          sql.NullString
	)

	err := row.Scan(
		&rule.ID, &rule.Name, &ruleType, &rule.Sequence, &rule.Active,
		&companyID, &journalIDs, &refPattern, &descKeywords, &partnerKw,
		&amountMin, &amountMax, &rule.ConfidenceBoost,
		&stampPartner, &stampAccount, &rule.MatchCount, &lastMatchedAt,
		&note, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = model.RuleType(ruleType)
	rule.ReferencePattern = refPattern.String
	rule.DescriptionKeywords = descKeywords.String
	rule.PartnerKeywords = partnerKw.String
	rule.Note = note.String
	rule.JournalIDs = splitJournals(journalIDs.String)
	if companyID.Valid {
		rule.CompanyID = &companyID.Int64
	}
	if amountMin.Valid {
		rule.AmountMin = &amountMin.Float64
	}
	if amountMax.Valid {
		rule.AmountMax = &amountMax.Float64
	}
	if stampPartner.Valid {
		rule.StampPartnerID = &stampPartner.Int64
	}
	if stampAccount.Valid {
		rule.StampAccountID = &stampAccount.Int64
	}
	if lastMatchedAt.Valid {
		rule.LastMatchedAt = &lastMatchedAt.Time
	}
	return &rule, nil
}

func joinJournals(ids []string) string {
	return strings.Join(ids, ",")
}

func splitJournals(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
