package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name   string
		from   JobState
		to     JobState
		want   bool
	}{
		{name: "draft to uploaded", from: JobDraft, to: JobUploaded, want: true},
		{name: "uploaded to parsing", from: JobUploaded, to: JobParsing, want: true},
		{name: "parsing to parsed", from: JobParsing, to: JobParsed, want: true},
		{name: "parsing to error", from: JobParsing, to: JobError, want: true},
		{name: "parsed to reconciling", from: JobParsed, to: JobReconciling, want: true},
		{name: "reconciling to reconciled", from: JobReconciling, to: JobReconciled, want: true},
		{name: "reconciling to error", from: JobReconciling, to: JobError, want: true},
		{name: "reconciled to done", from: JobReconciled, to: JobDone, want: true},
		{name: "reconciled rerun", from: JobReconciled, to: JobReconciling, want: true},
		{name: "draft cannot skip to parsed", from: JobDraft, to: JobParsed, want: false},
		{name: "uploaded cannot reconcile", from: JobUploaded, to: JobReconciling, want: false},
		{name: "done is terminal", from: JobDone, to: JobReconciling, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &ImportJob{State: tt.from}
			assert.Equal(t, tt.want, job.CanTransition(tt.to))
		})
	}
}

func TestCanTransition_ResetToDraft(t *testing.T) {
	statementID := int64(7)

	for _, state := range []JobState{JobUploaded, JobParsed, JobReconciled, JobError} {
		job := &ImportJob{State: state}
		assert.True(t, job.CanTransition(JobDraft), "reset from %s", state)
	}

	done := &ImportJob{State: JobDone}
	assert.False(t, done.CanTransition(JobDraft), "done is terminal")

	materialized := &ImportJob{State: JobReconciled, StatementID: &statementID}
	assert.False(t, materialized.CanTransition(JobDraft), "materialized jobs cannot reset")
}

func TestAppendLog(t *testing.T) {
	job := &ImportJob{}
	job.AppendLog("first")
	job.AppendLog("second")
	assert.Equal(t, "first\nsecond", job.ProcessingLog)
}
