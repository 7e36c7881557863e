// Package normalize parses locale-variant numeric and date strings into
// canonical decimal and date values.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateFormats is the ordered list of accepted date layouts. The first layout
// that parses wins.
var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate parses a date string against the accepted layouts in order.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// currencyMarks are stripped before numeric parsing.
var currencyMarks = []string{"€", "$", "£", "EUR", "USD", "GBP"}

// ParseAmount parses a locale-variant amount string into a decimal value.
// Thousands separators (space, non-breaking space, or the separator that is
// not the decimal mark) are stripped and decimal commas converted to dots,
// so "1 234,56", "1,234.56" and "1234.56" all yield the same value.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	// Accounting negatives: (123.45) means -123.45.
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// The rightmost separator is the decimal mark.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		idx := strings.LastIndex(s, ",")
		switch {
		case strings.Count(s, ",") > 1:
			// Multiple commas can only be thousands separators.
			s = strings.ReplaceAll(s, ",", "")
		case len(s)-idx-1 == 3:
			// Exactly three trailing digits: a thousands separator
			// ("1,234"), since bank amounts carry two decimals.
			s = strings.ReplaceAll(s, ",", "")
		default:
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable amount %q: %w", s, err)
	}
	return d, nil
}
