package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobState is the lifecycle state of an import job.
type JobState string

// Import job lifecycle states.
const (
	JobDraft       JobState = "draft"
	JobUploaded    JobState = "uploaded"
	JobParsing     JobState = "parsing"
	JobParsed      JobState = "parsed"
	JobReconciling JobState = "reconciling"
	JobReconciled  JobState = "reconciled"
	JobDone        JobState = "done"
	JobError       JobState = "error"
)

// FileType identifies the declared or detected statement file format.
type FileType string

// Supported statement file formats.
const (
	FileAuto FileType = "auto"
	FileCSV  FileType = "csv"
	FileOFX  FileType = "ofx"
	FilePDF  FileType = "pdf"
)

// ImportJob is one attempt to bring a bank statement into the system.
type ImportJob struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	StatementID    *int64
	ID             string
	Name           string
	FileName       string
	JournalID      string
	State          JobState
	FileType       FileType
	ProcessingLog  string
	LastError      string
	FileData       []byte
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	CompanyID      int64
	AutoReconcile  bool
	UseAI          bool
}

// jobTransitions enumerates the legal state machine edges.
var jobTransitions = map[JobState][]JobState{
	JobDraft:       {JobUploaded},
	JobUploaded:    {JobParsing},
	JobParsing:     {JobParsed, JobError},
	JobParsed:      {JobReconciling},
	JobReconciling: {JobReconciled, JobError},
	JobReconciled:  {JobDone, JobReconciling},
	JobError:       {JobDraft},
}

// CanTransition reports whether the job may move to the target state.
// Reset to draft is allowed from any non-terminal state as long as no
// ledger statement has been materialized.
func (j *ImportJob) CanTransition(target JobState) bool {
	if target == JobDraft {
		return j.State != JobDone && j.StatementID == nil
	}
	for _, next := range jobTransitions[j.State] {
		if next == target {
			return true
		}
	}
	return false
}

// AppendLog adds a line to the job's free-text processing log.
func (j *ImportJob) AppendLog(line string) {
	if j.ProcessingLog == "" {
		j.ProcessingLog = line
		return
	}
	j.ProcessingLog += "\n" + line
}
