// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/model"
)

// JobRepository persists import jobs.
type JobRepository interface {
	CreateJob(ctx context.Context, job *model.ImportJob) error
	GetJob(ctx context.Context, id string) (*model.ImportJob, error)
	UpdateJob(ctx context.Context, job *model.ImportJob) error
	ListJobs(ctx context.Context, companyID int64, limit int) ([]model.ImportJob, error)
}

// TransactionRepository persists statement lines owned by an import job.
type TransactionRepository interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, jobID string) ([]model.Transaction, error)
	UpdateTransactionMatch(ctx context.Context, txn *model.Transaction) error
	DeleteTransactions(ctx context.Context, jobID string) error
	CountByDedupKey(ctx context.Context, dedupKey, excludeID string) (int, error)
}

// SuggestionRepository persists candidate matches per transaction.
type SuggestionRepository interface {
	SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error
	GetSuggestions(ctx context.Context, transactionID string) ([]model.Suggestion, error)
	DeleteSuggestions(ctx context.Context, transactionID string) error
}

// RuleRepository persists reconciliation rules. RecordMatch is the single
// write path for usage counters so match evaluation stays side-effect-free.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	GetActiveRules(ctx context.Context, companyID int64) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	RecordMatch(ctx context.Context, id int64, at time.Time) error
}

// AlertRepository persists reconciliation alerts.
type AlertRepository interface {
	SaveAlerts(ctx context.Context, alerts []model.Alert) error
	GetAlerts(ctx context.Context, jobID string) ([]model.Alert, error)
	DeleteAlerts(ctx context.Context, jobID string) error
	ResolveAlert(ctx context.Context, id int64, note string) error
}

// LedgerQuery is the read-only view of the ledger used by matching. Every
// query is scoped to a company and to open (unreconciled) receivable/payable
// entries.
type LedgerQuery interface {
	FindByReference(ctx context.Context, companyID int64, reference string, limit int) ([]model.LedgerEntry, error)
	FindByAmountInWindow(ctx context.Context, companyID int64, amount decimal.Decimal, side model.LedgerSide, from, to time.Time, limit int) ([]model.LedgerEntry, error)
	FindByPartnerAmount(ctx context.Context, companyID, partnerID int64, amount decimal.Decimal, side model.LedgerSide, from, to time.Time, limit int) ([]model.LedgerEntry, error)
	FindOpenInWindow(ctx context.Context, companyID int64, from, to time.Time, limit int) ([]model.LedgerEntry, error)
}

// LedgerWriter is the write capability used only when a job completes.
type LedgerWriter interface {
	CreateStatement(ctx context.Context, statement *model.LedgerStatement) error
	CreateStatementLine(ctx context.Context, line *model.LedgerStatementLine) error
	MarkReconciled(ctx context.Context, entryID int64) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
