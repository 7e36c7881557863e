// Package parse converts raw bank-statement files (CSV, OFX, PDF) into a
// normalized transaction stream plus statement metadata.
package parse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/ai"
	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/ocr"
)

// Result is the outcome of parsing one statement file.
type Result struct {
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	Transactions   []model.Transaction
	Log            []string
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	HasBalances    bool
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// fillPeriodFromTransactions derives period bounds from transaction dates
// when the source format carries none.
func (r *Result) fillPeriodFromTransactions() {
	for i := range r.Transactions {
		d := r.Transactions[i].Date
		if r.PeriodStart == nil || d.Before(*r.PeriodStart) {
			start := d
			r.PeriodStart = &start
		}
		if r.PeriodEnd == nil || d.After(*r.PeriodEnd) {
			end := d
			r.PeriodEnd = &end
		}
	}
}

// Parser dispatches file bytes to the format-specific parsers. The AI client
// and OCR extractor are optional collaborators; when absent the PDF parser
// uses its deterministic paths only.
type Parser struct {
	aiClient ai.Client
	ocrText  ocr.TextExtractor
	language string
}

// Option configures a Parser.
type Option func(*Parser)

// WithAIClient enables AI-assisted PDF text extraction.
func WithAIClient(client ai.Client) Option {
	return func(p *Parser) { p.aiClient = client }
}

// WithOCR enables OCR fallback for scanned PDFs.
func WithOCR(extractor ocr.TextExtractor, language string) Option {
	return func(p *Parser) {
		p.ocrText = extractor
		p.language = language
	}
}

// WithoutAI returns a copy of the parser with the AI collaborator removed,
// for jobs that have not opted into AI assistance. The receiver is left
// untouched.
func (p *Parser) WithoutAI() *Parser {
	if p.aiClient == nil {
		return p
	}
	clone := *p
	clone.aiClient = nil
	return &clone
}

// NewParser creates a parser with the given collaborators.
func NewParser(opts ...Option) *Parser {
	p := &Parser{language: "eng"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts file bytes of the declared type into a Result. A file-level
// failure returns a FileFormatError; per-row failures are logged in the
// Result and skipped.
func (p *Parser) Parse(ctx context.Context, data []byte, fileType model.FileType) (*Result, error) {
	if len(data) == 0 {
		return nil, common.NewFileFormatError(string(fileType), fmt.Errorf("empty file"))
	}

	switch fileType {
	case model.FileCSV:
		return p.parseCSV(data)
	case model.FileOFX:
		return p.parseOFX(ctx, data)
	case model.FilePDF:
		return p.parsePDF(ctx, data)
	default:
		return nil, common.NewFileFormatError(string(fileType), fmt.Errorf("unsupported file type"))
	}
}
