package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain dot decimal", input: "1234.56", want: "1234.56"},
		{name: "us thousands", input: "1,234.56", want: "1234.56"},
		{name: "french space thousands", input: "1 234,56", want: "1234.56"},
		{name: "non-breaking space thousands", input: "1 234,56", want: "1234.56"},
		{name: "narrow no-break space", input: "12 345,00", want: "12345"},
		{name: "decimal comma", input: "42,50", want: "42.5"},
		{name: "single comma as thousands", input: "1,234", want: "1234"},
		{name: "multiple comma thousands", input: "1,234,567.89", want: "1234567.89"},
		{name: "negative", input: "-1 234,56", want: "-1234.56"},
		{name: "accounting parentheses", input: "(123.45)", want: "-123.45"},
		{name: "euro sign", input: "€99,90", want: "99.9"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_SeparatorStylesAgree(t *testing.T) {
	variants := []string{"1 234,56", "1,234.56", "1234.56", "1 234,56"}

	first, err := ParseAmount(variants[0])
	require.NoError(t, err)

	for _, v := range variants[1:] {
		got, err := ParseAmount(v)
		require.NoError(t, err)
		assert.True(t, first.Equal(got), "expected %q to equal %q", v, variants[0])
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "slash dmy", input: "15/03/2024", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "dash dmy", input: "15-03-2024", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "iso", input: "2024-03-15", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "dot dmy", input: "15.03.2024", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "two digit year", input: "15/03/24", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding space", input: "  15/03/2024 ", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "empty", input: "", wantErr: true},
		{name: "nonsense", input: "not a date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
