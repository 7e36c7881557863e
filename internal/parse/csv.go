package parse

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/normalize"
)

// csvDelimiters is the fixed candidate set tested against the first lines.
var csvDelimiters = []rune{';', ',', '\t', '|'}

// detectDelimiter picks the candidate delimiter that appears most often in
// the first lines of the file.
func detectDelimiter(content string) rune {
	lines := strings.SplitN(content, "\n", 6)
	sample := strings.Join(lines[:min(len(lines), 5)], "\n")

	best := ','
	bestCount := 0
	for _, d := range csvDelimiters {
		if n := strings.Count(sample, string(d)); n > bestCount {
			best = d
			bestCount = n
		}
	}
	return best
}

// parseCSV converts delimited text into normalized transactions. Rows whose
// date cannot be normalized are skipped and logged; only an unreadable file
// is fatal.
func (p *Parser) parseCSV(data []byte) (*Result, error) {
	content := strings.TrimPrefix(string(data), "\ufeff")

	delimiter := detectDelimiter(content)

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, common.NewFileFormatError("csv", err)
	}
	if len(records) == 0 {
		return nil, common.NewFileFormatError("csv", fmt.Errorf("no rows"))
	}

	result := &Result{}
	result.logf("delimiter: %q", string(delimiter))

	header := records[0]
	mapping := detectColumns(header)
	dataRows := records[1:]
	firstRowNum := 2

	if mapping.date == -1 || !mapping.hasAmount() {
		// Header did not win; infer date and amount columns from the first
		// data rows' content instead.
		mapping = inferColumnsFromContent(records)
		if len(records) > 1 && looksLikeHeader(records[0], mapping) {
			dataRows = records[1:]
		} else {
			dataRows = records
			firstRowNum = 1
		}
		result.logf("header not recognized, columns inferred from content")
	}
	result.logf("columns: date=%d description=%d amount=%d debit=%d credit=%d reference=%d",
		mapping.date, mapping.description, mapping.amount, mapping.debit, mapping.credit, mapping.reference)

	if mapping.date == -1 {
		return nil, common.NewFileFormatError("csv", fmt.Errorf("no date column detected"))
	}

	seq := 0
	for i, row := range dataRows {
		rowNum := i + firstRowNum

		txn, rowErr := parseCSVRow(row, mapping)
		if rowErr != nil {
			rowErr = &common.RowError{Row: rowNum, Err: rowErr}
			result.logf("skipped: %v", rowErr)
			common.LogWarn("skipped csv row", common.Fields{"error": rowErr.Error()})
			continue
		}
		if txn == nil {
			continue
		}

		txn.ID = uuid.NewString()
		txn.Sequence = seq
		txn.DedupKey = txn.GenerateDedupKey("")
		seq++
		result.Transactions = append(result.Transactions, *txn)
	}

	result.logf("total: %d transactions imported", len(result.Transactions))
	result.fillPeriodFromTransactions()

	return result, nil
}

// parseCSVRow normalizes one data row into a transaction. A nil transaction
// with nil error means an ignorable blank row.
func parseCSVRow(row []string, m columnMapping) (*model.Transaction, error) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	dateStr := cell(m.date)
	if dateStr == "" {
		return nil, nil
	}

	date, err := normalize.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("bad date: %w", err)
	}

	description := cell(m.description)
	if description == "" {
		// Fall back to the first non-empty cell that is not a date or
		// amount column.
		for i, v := range row {
			if i == m.date || i == m.amount || i == m.debit || i == m.credit {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				description = v
				break
			}
		}
	}
	if description == "" {
		description = "/"
	}

	var amount decimal.Decimal
	switch {
	case m.amount != -1:
		amount, err = normalize.ParseAmount(cell(m.amount))
		if err != nil {
			return nil, fmt.Errorf("bad amount: %w", err)
		}
	case m.debit != -1 || m.credit != -1:
		var debit, credit decimal.Decimal
		if s := cell(m.debit); s != "" {
			if debit, err = normalize.ParseAmount(s); err != nil {
				return nil, fmt.Errorf("bad debit: %w", err)
			}
		}
		if s := cell(m.credit); s != "" {
			if credit, err = normalize.ParseAmount(s); err != nil {
				return nil, fmt.Errorf("bad credit: %w", err)
			}
		}
		amount = credit.Sub(debit)
	}

	return &model.Transaction{
		Date:        date,
		Description: description,
		Reference:   cell(m.reference),
		Amount:      amount,
		State:       model.StateNotMatched,
	}, nil
}

// inferColumnsFromContent scans rows for cells that parse as dates and
// amounts when the header gave nothing usable.
func inferColumnsFromContent(records [][]string) columnMapping {
	m := columnMapping{date: -1, description: -1, amount: -1, debit: -1, credit: -1, reference: -1}

	rows := records
	if len(rows) > 10 {
		rows = rows[:10]
	}

	for _, row := range rows {
		for i, cellValue := range row {
			v := strings.TrimSpace(cellValue)
			if v == "" {
				continue
			}
			if m.date == -1 {
				if _, err := normalize.ParseDate(v); err == nil {
					m.date = i
					continue
				}
			}
			if m.amount == -1 && i != m.date {
				if _, err := normalize.ParseAmount(v); err == nil {
					m.amount = i
				}
			}
		}
		if m.date != -1 && m.amount != -1 {
			break
		}
	}

	// Everything that is not date or amount serves as description; pick the
	// first such column so parseCSVRow's non-empty fallback covers the rest.
	for i := 0; i < maxRowLen(rows); i++ {
		if i != m.date && i != m.amount {
			m.description = i
			break
		}
	}

	return m
}

func looksLikeHeader(row []string, m columnMapping) bool {
	if m.date < 0 || m.date >= len(row) {
		return false
	}
	_, err := normalize.ParseDate(strings.TrimSpace(row[m.date]))
	return err != nil
}

func maxRowLen(rows [][]string) int {
	n := 0
	for _, r := range rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}
