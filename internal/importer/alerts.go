package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rnicolet/bankmatch/internal/model"
)

// regenerateAlerts replaces the job's alerts with one per transaction still
// needing attention. Matched and manually resolved lines produce none.
func (i *Importer) regenerateAlerts(ctx context.Context, job *model.ImportJob, transactions []model.Transaction) error {
	if err := i.alerts.DeleteAlerts(ctx, job.ID); err != nil {
		return err
	}

	now := time.Now()
	var alerts []model.Alert
	for idx := range transactions {
		txn := &transactions[idx]

		switch txn.State {
		case model.StateUncertain:
			alerts = append(alerts, model.Alert{
				JobID:         job.ID,
				TransactionID: txn.ID,
				Type:          model.AlertUncertain,
				Severity:      model.SeverityWarning,
				State:         model.AlertNew,
				CreatedAt:     now,
				Message: fmt.Sprintf("%q could not be matched with certainty (confidence: %.0f%%)",
					txn.Description, txn.Confidence*100),
			})
		case model.StateNotMatched:
			alerts = append(alerts, model.Alert{
				JobID:         job.ID,
				TransactionID: txn.ID,
				Type:          model.AlertNotMatched,
				Severity:      model.SeverityError,
				State:         model.AlertNew,
				CreatedAt:     now,
				Message:       fmt.Sprintf("no ledger entry found for %q", txn.Description),
			})
		}

		if txn.IsDuplicate {
			alerts = append(alerts, model.Alert{
				JobID:         job.ID,
				TransactionID: txn.ID,
				Type:          model.AlertDuplicate,
				Severity:      model.SeverityInfo,
				State:         model.AlertNew,
				CreatedAt:     now,
				Message:       fmt.Sprintf("%q was already imported by another job", txn.Description),
			})
		}
	}

	if len(alerts) == 0 {
		return nil
	}
	return i.alerts.SaveAlerts(ctx, alerts)
}
