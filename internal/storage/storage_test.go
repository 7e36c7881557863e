package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/service"
)

// Compile-time interface checks.
var (
	_ service.JobRepository         = (*SQLiteStorage)(nil)
	_ service.TransactionRepository = (*SQLiteStorage)(nil)
	_ service.SuggestionRepository  = (*SQLiteStorage)(nil)
	_ service.RuleRepository        = (*SQLiteStorage)(nil)
	_ service.AlertRepository       = (*SQLiteStorage)(nil)
	_ service.LedgerQuery           = (*SQLiteStorage)(nil)
	_ service.LedgerWriter          = (*SQLiteStorage)(nil)
)

func setupStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func newTestJob() *model.ImportJob {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.ImportJob{
		ID:             "job-1",
		Name:           "March import",
		JournalID:      "BNK1",
		CompanyID:      1,
		State:          model.JobDraft,
		FileType:       model.FileAuto,
		OpeningBalance: decimal.RequireFromString("100.00"),
		ClosingBalance: decimal.RequireFromString("250.50"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestJobs_Roundtrip(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	job := newTestJob()
	require.NoError(t, store.CreateJob(ctx, job))

	loaded, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Name, loaded.Name)
	assert.Equal(t, model.JobDraft, loaded.State)
	assert.True(t, loaded.OpeningBalance.Equal(job.OpeningBalance))
	assert.Nil(t, loaded.StatementID)
	assert.Nil(t, loaded.PeriodStart)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	loaded.State = model.JobUploaded
	loaded.FileName = "march.csv"
	loaded.FileData = []byte("Date;Amount\n")
	loaded.PeriodStart = &start
	loaded.PeriodEnd = &end
	loaded.AppendLog("uploaded")
	require.NoError(t, store.UpdateJob(ctx, loaded))

	reloaded, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobUploaded, reloaded.State)
	assert.Equal(t, "march.csv", reloaded.FileName)
	assert.Equal(t, []byte("Date;Amount\n"), reloaded.FileData)
	require.NotNil(t, reloaded.PeriodStart)
	assert.True(t, reloaded.PeriodStart.Equal(start))
	assert.Contains(t, reloaded.ProcessingLog, "uploaded")
}

func TestJobs_DuplicateIDRejected(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	job := newTestJob()
	require.NoError(t, store.CreateJob(ctx, job))

	err := store.CreateJob(ctx, job)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestJobs_NotFound(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	_, err := store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.UpdateJob(ctx, newTestJob())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestJobs_ListOrdersByRecency(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	older := newTestJob()
	older.ID = "job-older"
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.CreateJob(ctx, older))

	newer := newTestJob()
	newer.ID = "job-newer"
	require.NoError(t, store.CreateJob(ctx, newer))

	jobs, err := store.ListJobs(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-newer", jobs[0].ID)

	other, err := store.ListJobs(ctx, 99, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func newTestTransaction(id, jobID string, seq int) model.Transaction {
	return model.Transaction{
		ID:          id,
		JobID:       jobID,
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "VIR CLIENT ACME",
		Reference:   "INV-100",
		Amount:      decimal.RequireFromString("150.00"),
		Sequence:    seq,
		DedupKey:    "dk-" + id,
		State:       model.StateNotMatched,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestTransactions_Roundtrip(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, newTestJob()))
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		newTestTransaction("t2", "job-1", 1),
		newTestTransaction("t1", "job-1", 0),
	}))

	transactions, err := store.GetTransactions(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "t1", transactions[0].ID, "lines come back in statement order")
	assert.True(t, transactions[0].Amount.Equal(decimal.RequireFromString("150.00")))

	entryID := int64(7)
	partnerID := int64(42)
	updated := transactions[0]
	updated.State = model.StateMatched
	updated.Confidence = 0.92
	updated.MatchedEntryID = &entryID
	updated.PartnerID = &partnerID
	require.NoError(t, store.UpdateTransactionMatch(ctx, &updated))

	reloaded, err := store.GetTransactions(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMatched, reloaded[0].State)
	assert.Equal(t, 0.92, reloaded[0].Confidence)
	require.NotNil(t, reloaded[0].MatchedEntryID)
	assert.Equal(t, entryID, *reloaded[0].MatchedEntryID)
	require.NotNil(t, reloaded[0].PartnerID)
	assert.Equal(t, partnerID, *reloaded[0].PartnerID)
}

func TestTransactions_DeleteCascadesSuggestions(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, newTestJob()))
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		newTestTransaction("t1", "job-1", 0),
	}))
	require.NoError(t, store.SaveSuggestions(ctx, []model.Suggestion{{
		TransactionID: "t1",
		LedgerEntryID: 5,
		Strategy:      model.StrategyExactReference,
		Confidence:    1.0,
		CreatedAt:     time.Now(),
	}}))

	require.NoError(t, store.DeleteTransactions(ctx, "job-1"))

	transactions, err := store.GetTransactions(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, transactions)
	suggestions, err := store.GetSuggestions(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestTransactions_CountByDedupKey(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, newTestJob()))
	second := newTestJob()
	second.ID = "job-2"
	require.NoError(t, store.CreateJob(ctx, second))

	a := newTestTransaction("t1", "job-1", 0)
	a.DedupKey = "shared"
	b := newTestTransaction("t2", "job-2", 0)
	b.DedupKey = "shared"
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{a, b}))

	count, err := store.CountByDedupKey(ctx, "shared", "t2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountByDedupKey(ctx, "unseen", "t2")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSuggestions_OrderedByConfidence(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, newTestJob()))
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		newTestTransaction("t1", "job-1", 0),
	}))

	now := time.Now()
	require.NoError(t, store.SaveSuggestions(ctx, []model.Suggestion{
		{TransactionID: "t1", LedgerEntryID: 1, Strategy: model.StrategyAmountDate, Confidence: 0.7, Reason: "close", CreatedAt: now},
		{TransactionID: "t1", LedgerEntryID: 2, Strategy: model.StrategyExactReference, Confidence: 1.0, Reason: "exact", CreatedAt: now},
	}))

	suggestions, err := store.GetSuggestions(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, int64(2), suggestions[0].LedgerEntryID)
	assert.Equal(t, model.StrategyExactReference, suggestions[0].Strategy)
	assert.Equal(t, "exact", suggestions[0].Reason)

	require.NoError(t, store.DeleteSuggestions(ctx, "t1"))
	suggestions, err = store.GetSuggestions(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestRules_Roundtrip(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	companyID := int64(1)
	boostMin := 100.0
	rule := &model.Rule{
		Name:            "Rent payments",
		Type:            model.RuleDescriptionKeyword,
		Sequence:        10,
		Active:          true,
		CompanyID:       &companyID,
		JournalIDs:      []string{"BNK1", "BNK2"},
		ConfidenceBoost: 0.2,
		AmountMin:       &boostMin,

		DescriptionKeywords: "loyer,rent",
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	require.NoError(t, store.CreateRule(ctx, rule))
	require.NotZero(t, rule.ID)

	loaded, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent payments", loaded.Name)
	assert.Equal(t, []string{"BNK1", "BNK2"}, loaded.JournalIDs)
	require.NotNil(t, loaded.CompanyID)
	assert.Equal(t, companyID, *loaded.CompanyID)
	require.NotNil(t, loaded.AmountMin)
	assert.Equal(t, 100.0, *loaded.AmountMin)
	assert.Nil(t, loaded.LastMatchedAt)

	loaded.DescriptionKeywords = "loyer"
	require.NoError(t, store.UpdateRule(ctx, loaded))

	require.NoError(t, store.RecordMatch(ctx, rule.ID, time.Now()))
	require.NoError(t, store.RecordMatch(ctx, rule.ID, time.Now()))

	reloaded, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "loyer", reloaded.DescriptionKeywords)
	assert.Equal(t, 2, reloaded.MatchCount)
	assert.NotNil(t, reloaded.LastMatchedAt)

	require.NoError(t, store.DeleteRule(ctx, rule.ID))
	_, err = store.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRules_InvalidRejected(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	err := store.CreateRule(ctx, &model.Rule{Name: "no criteria", Type: model.RuleReferencePattern})
	assert.ErrorIs(t, err, common.ErrInvalidRule)
}

func TestRules_ActiveScoping(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	companyOne := int64(1)
	companyTwo := int64(2)
	mk := func(name string, companyID *int64, sequence int, active bool) {
		require.NoError(t, store.CreateRule(ctx, &model.Rule{
			Name:                name,
			Type:                model.RuleDescriptionKeyword,
			DescriptionKeywords: "x",
			Sequence:            sequence,
			Active:              active,
			CompanyID:           companyID,
		}))
	}
	mk("global-late", nil, 20, true)
	mk("company-one", &companyOne, 10, true)
	mk("company-two", &companyTwo, 5, true)
	mk("inactive", nil, 1, false)

	ruleSet, err := store.GetActiveRules(ctx, companyOne)
	require.NoError(t, err)
	require.Len(t, ruleSet, 2)
	assert.Equal(t, "company-one", ruleSet[0].Name, "ordered by sequence")
	assert.Equal(t, "global-late", ruleSet[1].Name)
}

func TestAlerts_Roundtrip(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, newTestJob()))
	now := time.Now()
	require.NoError(t, store.SaveAlerts(ctx, []model.Alert{
		{JobID: "job-1", TransactionID: "t1", Type: model.AlertUncertain, Severity: model.SeverityWarning, State: model.AlertNew, Message: "uncertain", CreatedAt: now},
		{JobID: "job-1", TransactionID: "t2", Type: model.AlertNotMatched, Severity: model.SeverityError, State: model.AlertNew, Message: "unmatched", CreatedAt: now},
	}))

	alerts, err := store.GetAlerts(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, model.SeverityError, alerts[0].Severity, "errors sort first")

	require.NoError(t, store.ResolveAlert(ctx, alerts[0].ID, "booked manually"))
	alerts, err = store.GetAlerts(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.AlertResolved, alerts[0].State)
	assert.Equal(t, "booked manually", alerts[0].ResolutionNote)
	assert.NotNil(t, alerts[0].ResolvedAt)

	require.NoError(t, store.DeleteAlerts(ctx, "job-1"))
	alerts, err = store.GetAlerts(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func seedEntry(t *testing.T, store *SQLiteStorage, entry model.LedgerEntry) int64 {
	t.Helper()
	require.NoError(t, store.CreateLedgerEntry(context.Background(), &entry))
	return entry.ID
}

func TestLedger_Queries(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	partnerID := int64(42)

	exact := seedEntry(t, store, model.LedgerEntry{
		CompanyID: 1, Date: base, Name: "INV-100 ACME", Reference: "INV-100",
		Debit: decimal.RequireFromString("150.00"), Credit: decimal.Zero,
	})
	sameAmount := seedEntry(t, store, model.LedgerEntry{
		CompanyID: 1, Date: base.AddDate(0, 0, 3), Name: "INV-101",
		Debit: decimal.RequireFromString("150.00"), Credit: decimal.Zero,
	})
	partner := seedEntry(t, store, model.LedgerEntry{
		CompanyID: 1, Date: base.AddDate(0, 0, 20), Name: "INV-102",
		PartnerID: &partnerID, PartnerName: "ACME SARL",
		Debit: decimal.RequireFromString("150.00"), Credit: decimal.Zero,
	})
	// Credit-side entry with the same magnitude must not match debit queries.
	seedEntry(t, store, model.LedgerEntry{
		CompanyID: 1, Date: base, Name: "BILL-1",
		Debit: decimal.Zero, Credit: decimal.RequireFromString("150.00"),
	})
	// Other company is invisible.
	seedEntry(t, store, model.LedgerEntry{
		CompanyID: 2, Date: base, Name: "INV-100 OTHER", Reference: "INV-100",
		Debit: decimal.RequireFromString("150.00"), Credit: decimal.Zero,
	})

	byRef, err := store.FindByReference(ctx, 1, "INV-100", 5)
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, exact, byRef[0].ID)

	amount := decimal.RequireFromString("150.00")
	byAmount, err := store.FindByAmountInWindow(ctx, 1, amount, model.SideDebit,
		base.AddDate(0, 0, -7), base.AddDate(0, 0, 7), 10)
	require.NoError(t, err)
	require.Len(t, byAmount, 2)
	assert.Equal(t, exact, byAmount[0].ID)
	assert.Equal(t, sameAmount, byAmount[1].ID)

	byPartner, err := store.FindByPartnerAmount(ctx, 1, partnerID, amount, model.SideDebit,
		base.AddDate(0, 0, -60), base.AddDate(0, 0, 60), 5)
	require.NoError(t, err)
	require.Len(t, byPartner, 1)
	assert.Equal(t, partner, byPartner[0].ID)

	open, err := store.FindOpenInWindow(ctx, 1, base.AddDate(0, 0, -1), base.AddDate(0, 0, 30), 50)
	require.NoError(t, err)
	assert.Len(t, open, 4)

	// Reconciling an entry removes it from every query.
	require.NoError(t, store.MarkReconciled(ctx, exact))
	byRef, err = store.FindByReference(ctx, 1, "INV-100", 5)
	require.NoError(t, err)
	assert.Empty(t, byRef)
}

func TestLedger_MaterializeStatement(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	statement := &model.LedgerStatement{
		Name:           "March import",
		JournalID:      "BNK1",
		Date:           time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.RequireFromString("100.00"),
		ClosingBalance: decimal.RequireFromString("250.00"),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.CreateStatement(ctx, statement))
	require.NotZero(t, statement.ID)

	entryID := int64(9)
	line := &model.LedgerStatementLine{
		StatementID:      statement.ID,
		Date:             time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:           decimal.RequireFromString("150.00"),
		PaymentRef:       "VIR CLIENT ACME",
		DedupKey:         "dk-1",
		ReconciledWithID: &entryID,
	}
	require.NoError(t, store.CreateStatementLine(ctx, line))
	assert.NotZero(t, line.ID)
}
