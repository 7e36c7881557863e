package parse

import "strings"

// columnMapping holds the inferred index of each logical field in a
// delimited file. An index of -1 means the field was not found.
type columnMapping struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
	reference   int
}

// Keyword sets per logical field, matched as substrings of normalized
// header tokens. French and English header vocabularies are both common in
// the statements this tool sees.
var (
	dateKeywords        = []string{"date", "date operation", "date valeur", "date comptable", "booking date", "value date"}
	descriptionKeywords = []string{"libelle", "description", "detail", "operation", "narrative", "label", "memo"}
	amountKeywords      = []string{"montant", "amount", "debit", "credit", "valeur", "value"}
	referenceKeywords   = []string{"reference", "ref", "numero", "number", "transaction id"}
)

// normalizeHeader lowercases a header cell and strips accents common in
// French bank exports so keyword matching stays simple.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	replacer := strings.NewReplacer(
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"à", "a", "â", "a", "î", "i", "ï", "i",
		"ô", "o", "û", "u", "ù", "u", "ç", "c",
		"\ufeff", "",
	)
	return replacer.Replace(h)
}

// detectColumns infers which columns hold each logical field from header
// names. The mapping depends only on the header text, never on column
// position, so reordering columns yields the same mapping.
func detectColumns(header []string) columnMapping {
	m := columnMapping{date: -1, description: -1, amount: -1, debit: -1, credit: -1, reference: -1}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	match := func(field string, keywords []string) bool {
		for _, kw := range keywords {
			if strings.Contains(field, kw) {
				return true
			}
		}
		return false
	}

	for i, field := range normalized {
		if m.date == -1 && match(field, dateKeywords) {
			m.date = i
		}
	}

	for i, field := range normalized {
		if i == m.date {
			continue
		}
		if m.description == -1 && match(field, descriptionKeywords) && !strings.Contains(field, "debit") && !strings.Contains(field, "credit") {
			m.description = i
		}
	}

	for i, field := range normalized {
		if i == m.date || i == m.description {
			continue
		}
		if match(field, amountKeywords) {
			switch {
			case strings.Contains(field, "debit"):
				if m.debit == -1 {
					m.debit = i
				}
			case strings.Contains(field, "credit"):
				if m.credit == -1 {
					m.credit = i
				}
			default:
				if m.amount == -1 {
					m.amount = i
				}
			}
		}
	}

	for i, field := range normalized {
		if i == m.date || i == m.description || i == m.amount || i == m.debit || i == m.credit {
			continue
		}
		if m.reference == -1 && match(field, referenceKeywords) {
			m.reference = i
		}
	}

	return m
}

// hasAmount reports whether the mapping found either a signed amount column
// or a debit/credit pair.
func (m columnMapping) hasAmount() bool {
	return m.amount != -1 || m.debit != -1 || m.credit != -1
}
