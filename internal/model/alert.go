package model

import "time"

// AlertType classifies why a statement line needs attention.
type AlertType string

// Alert types.
const (
	AlertUncertain  AlertType = "uncertain"
	AlertNotMatched AlertType = "not_matched"
	AlertDuplicate  AlertType = "duplicate"
)

// AlertSeverity grades an alert for triage.
type AlertSeverity string

// Alert severities.
const (
	SeverityInfo    AlertSeverity = "info"
	SeverityWarning AlertSeverity = "warning"
	SeverityError   AlertSeverity = "error"
)

// AlertState tracks human triage of an alert.
type AlertState string

// Alert triage states.
const (
	AlertNew        AlertState = "new"
	AlertInProgress AlertState = "in_progress"
	AlertResolved   AlertState = "resolved"
	AlertIgnored    AlertState = "ignored"
)

// Alert is an advisory attached to an import job and transaction describing
// why a line needs human review. Alerts for a job are regenerated wholesale
// each time reconciliation runs.
type Alert struct {
	CreatedAt      time.Time
	ResolvedAt     *time.Time
	JobID          string
	TransactionID  string
	Message        string
	ResolutionNote string
	Type           AlertType
	Severity       AlertSeverity
	State          AlertState
	ID             int64
}
