// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Import errors.
	ErrFileFormat      = errors.New("unsupported or undecodable file")
	ErrNoTransactions  = errors.New("no transactions to reconcile")
	ErrInvalidRule     = errors.New("invalid reconciliation rule")
	ErrStateTransition = errors.New("invalid job state transition")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// FileFormatError is fatal to an import job: the file itself cannot be read.
type FileFormatError struct {
	Err      error
	FileType string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("cannot parse %s file: %v", e.FileType, e.Err)
}

func (e *FileFormatError) Unwrap() error {
	return ErrFileFormat
}

// NewFileFormatError wraps a fatal parse failure with the declared file type.
func NewFileFormatError(fileType string, err error) error {
	return &FileFormatError{FileType: fileType, Err: err}
}

// RowError describes a single malformed row or record. Callers skip the row,
// record the error in the processing log, and continue.
type RowError struct {
	Err error
	Row int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// CollaboratorError marks a failure of an external collaborator (OCR, AI).
// These are always recoverable: callers select a fallback path.
type CollaboratorError struct {
	Err          error
	Collaborator string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError wraps an OCR or AI failure.
func NewCollaboratorError(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// IsCollaboratorError reports whether err originated in an external collaborator.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
