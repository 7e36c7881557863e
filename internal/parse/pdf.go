package parse

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/normalize"
)

var (
	pdfDateRegex   = regexp.MustCompile(`(\d{2}[/-]\d{2}[/-]\d{4})`)
	pdfAmountRegex = regexp.MustCompile(`(-?\d{1,3}(?:[\s,]\d{3})*[.,]\d{2})`)
)

// parsePDF extracts transactions from a PDF statement. Text comes from the
// native text layer when one exists, from OCR otherwise. Structured
// extraction is attempted through the AI client first and falls back to
// regex line scanning when the client is absent or fails.
func (p *Parser) parsePDF(ctx context.Context, data []byte) (*Result, error) {
	result := &Result{}

	text, err := extractNativeText(data)
	if err != nil {
		result.logf("native text extraction failed: %v", err)
	}

	if !isReadablePDFText(text) && p.ocrText != nil {
		result.logf("no usable text layer, running OCR")
		ocrText, ocrErr := p.ocrText.ExtractText(ctx, data, p.language)
		if ocrErr != nil {
			result.logf("OCR failed: %v", ocrErr)
		} else {
			text = ocrText
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, common.NewFileFormatError("pdf", fmt.Errorf("no text could be extracted"))
	}

	var txns []model.Transaction
	if p.aiClient != nil {
		txns = p.extractWithAI(ctx, text, result)
	}
	if txns == nil {
		txns = extractWithRegex(text, result)
	}

	result.Transactions = txns
	result.fillPeriodFromTransactions()
	return result, nil
}

// extractNativeText pulls the text layer of every page. The PDF library
// panics on some malformed files, so the panic is converted to an error.
func extractNativeText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i, strings.Join(lines, "\n")))
	}

	return strings.Join(pages, "\n"), nil
}

// isReadablePDFText guards against identity-encoded fonts that decode into
// garbage. A text layer that is mostly non-ASCII noise is treated as absent.
func isReadablePDFText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 20 {
		return false
	}
	total, readable := 0, 0
	for _, r := range trimmed {
		total++
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r)) {
			readable++
		}
	}
	return float64(readable)/float64(total) > 0.7
}

// extractWithAI asks the AI client for structured transactions. Any failure,
// including malformed output, is logged and yields nil so the caller falls
// back to regex scanning.
func (p *Parser) extractWithAI(ctx context.Context, text string, result *Result) []model.Transaction {
	extracted, err := p.aiClient.ExtractTransactions(ctx, text)
	if err != nil {
		if !common.IsCollaboratorError(err) {
			err = common.NewCollaboratorError("ai", err)
		}
		result.logf("AI extraction failed, falling back to pattern matching: %v", err)
		return nil
	}
	if len(extracted) == 0 {
		result.logf("AI extraction returned no transactions, falling back to pattern matching")
		return nil
	}

	var txns []model.Transaction
	for i, e := range extracted {
		date, dateErr := normalize.ParseDate(e.Date)
		if dateErr != nil {
			result.logf("skipping extracted row %d: %v", i+1, dateErr)
			continue
		}
		desc := strings.TrimSpace(e.Name)
		if desc == "" {
			desc = "/"
		}
		txn := model.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Amount:      decimal.NewFromFloat(e.Amount),
			Description: desc,
			Reference:   strings.TrimSpace(e.Ref),
			Sequence:    len(txns),
			State:       model.StateNotMatched,
		}
		txn.DedupKey = txn.GenerateDedupKey("")
		txns = append(txns, txn)
	}
	if len(txns) == 0 {
		result.logf("AI extraction produced no usable rows, falling back to pattern matching")
		return nil
	}
	return txns
}

// extractWithRegex scans each line for a date and an amount. Lines without
// both are statement furniture (headers, addresses, page footers) and are
// ignored rather than reported.
func extractWithRegex(text string, result *Result) []model.Transaction {
	var txns []model.Transaction
	for _, line := range strings.Split(text, "\n") {
		dateMatch := pdfDateRegex.FindStringIndex(line)
		if dateMatch == nil {
			continue
		}
		amountMatches := pdfAmountRegex.FindAllString(line, -1)
		if len(amountMatches) == 0 {
			continue
		}

		date, err := normalize.ParseDate(line[dateMatch[0]:dateMatch[1]])
		if err != nil {
			result.logf("skipping line %q: %v", line, err)
			continue
		}
		// The rightmost amount on the line is the transaction amount; earlier
		// ones tend to be value dates or running balances.
		amount, err := normalize.ParseAmount(amountMatches[len(amountMatches)-1])
		if err != nil {
			result.logf("skipping line %q: %v", line, err)
			continue
		}

		desc := line[dateMatch[1]:]
		if idx := pdfAmountRegex.FindStringIndex(desc); idx != nil {
			desc = desc[:idx[0]]
		}
		desc = strings.TrimSpace(desc)
		if desc == "" {
			desc = "/"
		}

		txn := model.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Amount:      amount,
			Description: desc,
			Sequence:    len(txns),
			State:       model.StateNotMatched,
		}
		txn.DedupKey = txn.GenerateDedupKey("")
		txns = append(txns, txn)
	}
	return txns
}
