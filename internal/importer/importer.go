// Package importer orchestrates the import-job lifecycle: upload, format
// detection, parsing, reconciliation, alert generation and statement
// materialization. One job is processed start to finish by one caller; there
// is no background work.
package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/match"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/parse"
	"github.com/rnicolet/bankmatch/internal/rules"
	"github.com/rnicolet/bankmatch/internal/service"
)

// Importer drives import jobs through their state machine.
type Importer struct {
	jobs        service.JobRepository
	txns        service.TransactionRepository
	suggestions service.SuggestionRepository
	alerts      service.AlertRepository
	ledgerW     service.LedgerWriter
	parser      *parse.Parser
	matcher     *match.Engine
	ruleEngine  *rules.Engine
	aiScorer    match.Scorer
	cfg         match.Config
	progressOut io.Writer
}

// Option configures an Importer.
type Option func(*Importer)

// WithProgress renders a progress bar to the given writer while
// reconciling. Intended for interactive CLI use.
func WithProgress(w io.Writer) Option {
	return func(i *Importer) { i.progressOut = w }
}

// WithAIScorer supplies the AI-backed scorer used for the semantic strategy
// on jobs that opt into AI assistance. Jobs that do not opt in keep the
// engine's deterministic scorer.
func WithAIScorer(scorer match.Scorer) Option {
	return func(i *Importer) { i.aiScorer = scorer }
}

// New wires an importer from its collaborators.
func New(
	jobs service.JobRepository,
	txns service.TransactionRepository,
	suggestions service.SuggestionRepository,
	alerts service.AlertRepository,
	ledgerW service.LedgerWriter,
	parser *parse.Parser,
	matcher *match.Engine,
	ruleEngine *rules.Engine,
	cfg match.Config,
	opts ...Option,
) *Importer {
	imp := &Importer{
		jobs:        jobs,
		txns:        txns,
		suggestions: suggestions,
		alerts:      alerts,
		ledgerW:     ledgerW,
		parser:      parser,
		matcher:     matcher,
		ruleEngine:  ruleEngine,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// CreateJob creates a draft job for a company and journal.
func (i *Importer) CreateJob(ctx context.Context, name, journalID string, companyID int64) (*model.ImportJob, error) {
	now := time.Now()
	job := &model.ImportJob{
		ID:        uuid.NewString(),
		Name:      name,
		JournalID: journalID,
		CompanyID: companyID,
		State:     model.JobDraft,
		FileType:  model.FileAuto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := i.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Upload attaches file bytes to a draft job and classifies the format.
// Detection is best effort and only ever moves the job to uploaded.
func (i *Importer) Upload(ctx context.Context, jobID, fileName string, data []byte) (*model.ImportJob, error) {
	job, err := i.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := i.transition(ctx, job, model.JobUploaded); err != nil {
		return nil, err
	}

	job.FileName = fileName
	job.FileData = data
	job.FileType = parse.DetectFileType(fileName, data)
	job.AppendLog(fmt.Sprintf("uploaded %s (%d bytes), detected format: %s", fileName, len(data), job.FileType))

	if err := i.jobs.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Parse runs the format parser over the uploaded file and persists the
// extracted transactions. AI-assisted extraction only runs on jobs that
// opted in. A file-level failure moves the job to error; rows the parser
// skipped are only logged.
func (i *Importer) Parse(ctx context.Context, jobID string) (*model.ImportJob, error) {
	job, err := i.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := i.transition(ctx, job, model.JobParsing); err != nil {
		return nil, err
	}

	parser := i.parser
	if !job.UseAI {
		parser = parser.WithoutAI()
	}

	result, parseErr := parser.Parse(ctx, job.FileData, job.FileType)
	if parseErr != nil {
		common.LogError(parseErr, "statement parse failed", common.Fields{"job": job.ID})
		job.LastError = parseErr.Error()
		job.AppendLog("parse failed: " + parseErr.Error())
		if err := i.transition(ctx, job, model.JobError); err != nil {
			return nil, err
		}
		return job, parseErr
	}

	for _, line := range result.Log {
		job.AppendLog(line)
	}
	job.PeriodStart = result.PeriodStart
	job.PeriodEnd = result.PeriodEnd
	if result.HasBalances {
		job.OpeningBalance = result.OpeningBalance
		job.ClosingBalance = result.ClosingBalance
	}

	for idx := range result.Transactions {
		txn := &result.Transactions[idx]
		txn.JobID = job.ID
		txn.CreatedAt = time.Now()
		if err := i.flagDuplicate(ctx, txn); err != nil {
			return nil, err
		}
	}

	// Replace any transactions from an earlier parse of this job.
	if err := i.txns.DeleteTransactions(ctx, job.ID); err != nil {
		return nil, err
	}
	if err := i.txns.SaveTransactions(ctx, result.Transactions); err != nil {
		return nil, err
	}

	job.AppendLog(fmt.Sprintf("parsed %d transactions", len(result.Transactions)))
	if err := i.transition(ctx, job, model.JobParsed); err != nil {
		return nil, err
	}
	return job, nil
}

// flagDuplicate marks a transaction whose dedup key already exists in
// another job's imported lines.
func (i *Importer) flagDuplicate(ctx context.Context, txn *model.Transaction) error {
	count, err := i.txns.CountByDedupKey(ctx, txn.DedupKey, txn.ID)
	if err != nil {
		return err
	}
	txn.IsDuplicate = count > 0
	return nil
}

// Reconcile runs the matching engine and rule engine over every transaction
// of the job, persists the aggregated suggestions, decides dispositions and
// regenerates alerts. Re-running it discards prior suggestions first, so the
// result depends only on current inputs.
func (i *Importer) Reconcile(ctx context.Context, jobID string) (*model.ImportJob, error) {
	job, err := i.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := i.transition(ctx, job, model.JobReconciling); err != nil {
		return nil, err
	}

	transactions, err := i.txns.GetTransactions(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	bar := i.newProgressBar(len(transactions))

	matcher := i.matcher
	if job.UseAI && i.aiScorer != nil {
		matcher = matcher.WithScorer(i.aiScorer)
		job.AppendLog("semantic matching delegated to the AI scorer")
	}

	var matchedRuleIDs []int64
	for idx := range transactions {
		txn := &transactions[idx]

		ruleIDs, reconcileErr := i.reconcileTransaction(ctx, job, txn, matcher)
		if reconcileErr != nil {
			common.LogError(reconcileErr, "reconciliation failed", common.Fields{
				"job":         job.ID,
				"transaction": txn.ID,
			})
			job.LastError = reconcileErr.Error()
			job.AppendLog(fmt.Sprintf("reconciliation failed on line %d: %v", txn.Sequence+1, reconcileErr))
			if err := i.transition(ctx, job, model.JobError); err != nil {
				return nil, err
			}
			return job, reconcileErr
		}
		matchedRuleIDs = append(matchedRuleIDs, ruleIDs...)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if err := i.ruleEngine.RecordMatches(ctx, matchedRuleIDs, time.Now()); err != nil {
		return nil, err
	}

	if err := i.regenerateAlerts(ctx, job, transactions); err != nil {
		return nil, err
	}

	stats := computeStats(transactions)
	job.AppendLog(fmt.Sprintf("reconciled: %d matched, %d uncertain, %d unmatched",
		stats.Matched, stats.Uncertain, stats.NotMatched))
	if err := i.transition(ctx, job, model.JobReconciled); err != nil {
		return nil, err
	}
	return job, nil
}

// reconcileTransaction runs one transaction through matching, rules,
// aggregation and disposition. It returns the ids of the rules that matched
// so their counters can be recorded once per pass.
func (i *Importer) reconcileTransaction(ctx context.Context, job *model.ImportJob, txn *model.Transaction, matcher *match.Engine) ([]int64, error) {
	if err := i.suggestions.DeleteSuggestions(ctx, txn.ID); err != nil {
		return nil, err
	}

	candidates, err := matcher.FindSuggestions(ctx, txn, job.CompanyID)
	if err != nil {
		return nil, err
	}

	aggregated := match.Aggregate(candidates, i.cfg.MaxSuggestions)

	app, err := i.ruleEngine.Apply(ctx, txn, job.JournalID, job.CompanyID)
	if err != nil {
		return nil, err
	}
	if app.StampPartnerID != nil && txn.PartnerID == nil {
		txn.PartnerID = app.StampPartnerID
	}

	// Rule boosts raise the confidence the disposition is decided on, but
	// the stored suggestions keep their per-strategy confidence.
	decision := aggregated
	if app.Boost > 0 && len(aggregated) > 0 {
		decision = make([]model.Suggestion, len(aggregated))
		copy(decision, aggregated)
		decision[0].Confidence = rules.BoostConfidence(decision[0].Confidence, app.Boost)
	}
	state, confidence, entryID := match.Disposition(decision, i.cfg)

	now := time.Now()
	for idx := range aggregated {
		aggregated[idx].CreatedAt = now
	}
	if err := i.suggestions.SaveSuggestions(ctx, aggregated); err != nil {
		return nil, err
	}

	txn.State = state
	txn.Confidence = confidence
	txn.MatchedEntryID = entryID
	if err := i.txns.UpdateTransactionMatch(ctx, txn); err != nil {
		return nil, err
	}

	return app.MatchedRuleIDs, nil
}

// Materialize creates the ledger statement with one line per transaction,
// auto-reconciling the matched ones, and completes the job. Irreversible.
// Refused when the job carries no transactions.
func (i *Importer) Materialize(ctx context.Context, jobID string) (*model.ImportJob, error) {
	job, err := i.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanTransition(model.JobDone) {
		return nil, fmt.Errorf("%w: %s -> %s", common.ErrStateTransition, job.State, model.JobDone)
	}

	transactions, err := i.txns.GetTransactions(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, fmt.Errorf("%w: job %s", common.ErrNoTransactions, job.ID)
	}

	statement := &model.LedgerStatement{
		Name:           job.Name,
		JournalID:      job.JournalID,
		Date:           statementDate(job),
		OpeningBalance: job.OpeningBalance,
		ClosingBalance: job.ClosingBalance,
		CreatedAt:      time.Now(),
	}
	if err := i.ledgerW.CreateStatement(ctx, statement); err != nil {
		return nil, err
	}

	for idx := range transactions {
		txn := &transactions[idx]
		line := &model.LedgerStatementLine{
			StatementID: statement.ID,
			Date:        txn.Date,
			Amount:      txn.Amount,
			Reference:   txn.Reference,
			PaymentRef:  txn.Description,
			PartnerName: txn.PartnerName,
			PartnerID:   txn.PartnerID,
			DedupKey:    txn.DedupKey,
		}
		if txn.State == model.StateMatched || txn.State == model.StateManual {
			line.ReconciledWithID = txn.MatchedEntryID
		}
		if err := i.ledgerW.CreateStatementLine(ctx, line); err != nil {
			return nil, err
		}
		if line.ReconciledWithID != nil {
			if err := i.ledgerW.MarkReconciled(ctx, *line.ReconciledWithID); err != nil {
				return nil, err
			}
		}
	}

	job.StatementID = &statement.ID
	job.AppendLog(fmt.Sprintf("materialized statement %d with %d lines", statement.ID, len(transactions)))
	common.LogInfo("statement materialized", common.Fields{
		"job":       job.ID,
		"statement": statement.ID,
		"lines":     len(transactions),
	})
	if err := i.transition(ctx, job, model.JobDone); err != nil {
		return nil, err
	}
	return job, nil
}

// Reset returns a job to draft, discarding its transactions, suggestions and
// alerts. Refused once a statement has been materialized.
func (i *Importer) Reset(ctx context.Context, jobID string) (*model.ImportJob, error) {
	job, err := i.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.CanTransition(model.JobDraft) {
		return nil, fmt.Errorf("%w: cannot reset job in state %s", common.ErrStateTransition, job.State)
	}

	transactions, err := i.txns.GetTransactions(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	for idx := range transactions {
		if err := i.suggestions.DeleteSuggestions(ctx, transactions[idx].ID); err != nil {
			return nil, err
		}
	}
	if err := i.txns.DeleteTransactions(ctx, job.ID); err != nil {
		return nil, err
	}
	if err := i.alerts.DeleteAlerts(ctx, job.ID); err != nil {
		return nil, err
	}

	job.FileData = nil
	job.FileName = ""
	job.FileType = model.FileAuto
	job.LastError = ""
	job.AppendLog("reset to draft")
	if err := i.transition(ctx, job, model.JobDraft); err != nil {
		return nil, err
	}
	return job, nil
}

// ApplySuggestion manually resolves a transaction against one of its
// suggestions, or against an arbitrary ledger entry when the reviewer knows
// better than the engine.
func (i *Importer) ApplySuggestion(ctx context.Context, txn *model.Transaction, ledgerEntryID int64, confidence float64) error {
	txn.State = model.StateManual
	txn.MatchedEntryID = &ledgerEntryID
	txn.Confidence = confidence
	return i.txns.UpdateTransactionMatch(ctx, txn)
}

// Run pushes a freshly created job through the whole pipeline.
func (i *Importer) Run(ctx context.Context, jobID, fileName string, data []byte) (*model.ImportJob, error) {
	if _, err := i.Upload(ctx, jobID, fileName, data); err != nil {
		return nil, err
	}
	if job, err := i.Parse(ctx, jobID); err != nil {
		return job, err
	}
	if job, err := i.Reconcile(ctx, jobID); err != nil {
		return job, err
	}

	job, err := i.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.AutoReconcile {
		return i.Materialize(ctx, jobID)
	}
	return job, nil
}

// transition moves the job and persists it, enforcing the state machine.
func (i *Importer) transition(ctx context.Context, job *model.ImportJob, target model.JobState) error {
	if !job.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", common.ErrStateTransition, job.State, target)
	}
	job.State = target
	job.UpdatedAt = time.Now()
	return i.jobs.UpdateJob(ctx, job)
}

func (i *Importer) newProgressBar(total int) *progressbar.ProgressBar {
	if i.progressOut == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(i.progressOut),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Reconciling transactions..."),
	)
}

func statementDate(job *model.ImportJob) time.Time {
	if job.PeriodEnd != nil {
		return *job.PeriodEnd
	}
	return time.Now()
}

// Stats summarizes the dispositions of a job's transactions.
type Stats struct {
	Total      int
	Matched    int
	Uncertain  int
	NotMatched int
	Manual     int
	Duplicates int
}

func computeStats(transactions []model.Transaction) Stats {
	stats := Stats{Total: len(transactions)}
	for idx := range transactions {
		switch transactions[idx].State {
		case model.StateMatched:
			stats.Matched++
		case model.StateUncertain:
			stats.Uncertain++
		case model.StateManual:
			stats.Manual++
		default:
			stats.NotMatched++
		}
		if transactions[idx].IsDuplicate {
			stats.Duplicates++
		}
	}
	return stats
}

// JobStats loads a job's transactions and summarizes them.
func (i *Importer) JobStats(ctx context.Context, jobID string) (Stats, error) {
	transactions, err := i.txns.GetTransactions(ctx, jobID)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(transactions), nil
}
