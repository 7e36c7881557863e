package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnicolet/bankmatch/internal/ai"
	"github.com/rnicolet/bankmatch/internal/model"
)

const sampleStatementText = `--- Page 1 ---
BANQUE EXEMPLE - Relevé de compte
Période du 01/01/2024 au 31/01/2024
15/01/2024 VIR SEPA LOYER JANVIER -800,00
20/01/2024 SALAIRE ACME SARL 2 500,00
Solde au 31/01/2024 1 700,00
--- Page 2 ---
25-01-2024 PRLV EDF FACTURE -120,50
Page 2 sur 2`

func TestExtractWithRegex(t *testing.T) {
	result := &Result{}
	txns := extractWithRegex(sampleStatementText, result)

	// The balance line carries a date too, so four lines qualify; transaction
	// rows keep their description and amount intact.
	require.NotEmpty(t, txns)

	var rent, salary, edf *model.Transaction
	for i := range txns {
		switch txns[i].Description {
		case "VIR SEPA LOYER JANVIER":
			rent = &txns[i]
		case "SALAIRE ACME SARL":
			salary = &txns[i]
		case "PRLV EDF FACTURE":
			edf = &txns[i]
		}
	}

	require.NotNil(t, rent)
	assert.True(t, rent.Amount.Equal(decimal.RequireFromString("-800.00")), "got %s", rent.Amount)
	assert.Equal(t, "2024-01-15", rent.Date.Format("2006-01-02"))

	require.NotNil(t, salary)
	assert.True(t, salary.Amount.Equal(decimal.RequireFromString("2500.00")), "got %s", salary.Amount)

	require.NotNil(t, edf, "dash-separated dates must match too")
	assert.True(t, edf.Amount.Equal(decimal.RequireFromString("-120.50")), "got %s", edf.Amount)
}

func TestExtractWithRegex_IgnoresFurniture(t *testing.T) {
	text := "BANQUE EXEMPLE\nRelevé de compte\nPage 1 sur 1\nTotal mouvements: 12\n"
	result := &Result{}
	txns := extractWithRegex(text, result)
	assert.Empty(t, txns)
	assert.Empty(t, result.Log, "non-transaction lines are ignored, not reported")
}

type stubAIClient struct {
	extracted []ai.ExtractedTransaction
	err       error
}

func (s *stubAIClient) ExtractTransactions(_ context.Context, _ string) ([]ai.ExtractedTransaction, error) {
	return s.extracted, s.err
}

func (s *stubAIClient) ScoreMatch(_ context.Context, _ ai.MatchPair) (ai.MatchScore, error) {
	return ai.MatchScore{}, errors.New("not used")
}

func TestExtractWithAI(t *testing.T) {
	p := NewParser(WithAIClient(&stubAIClient{
		extracted: []ai.ExtractedTransaction{
			{Date: "15/01/2024", Name: "VIR SEPA LOYER", Amount: -800.00, Ref: "REF-1"},
			{Date: "garbage", Name: "Broken", Amount: 1},
			{Date: "20/01/2024", Name: "SALAIRE", Amount: 2500.00},
		},
	}))

	result := &Result{}
	txns := p.extractWithAI(context.Background(), "whatever", result)

	require.Len(t, txns, 2, "rows with unparseable dates are skipped")
	assert.Equal(t, "VIR SEPA LOYER", txns[0].Description)
	assert.Equal(t, "REF-1", txns[0].Reference)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-800")))
	assert.NotEmpty(t, result.Log)
}

func TestExtractWithAI_FailureFallsBack(t *testing.T) {
	p := NewParser(WithAIClient(&stubAIClient{err: errors.New("model unavailable")}))

	result := &Result{}
	txns := p.extractWithAI(context.Background(), "whatever", result)

	assert.Nil(t, txns, "failure must yield nil so regex fallback runs")
	assert.NotEmpty(t, result.Log)
}

func TestParserWithoutAI(t *testing.T) {
	p := NewParser(WithAIClient(&stubAIClient{}))

	stripped := p.WithoutAI()
	assert.Nil(t, stripped.aiClient)
	assert.NotNil(t, p.aiClient, "original parser keeps its client")

	// Without a client there is nothing to strip.
	bare := NewParser()
	assert.Same(t, bare, bare.WithoutAI())
}

func TestIsReadablePDFText(t *testing.T) {
	assert.True(t, isReadablePDFText("15/01/2024 VIR SEPA LOYER JANVIER -800,00 ref 123"))
	assert.False(t, isReadablePDFText(""))
	assert.False(t, isReadablePDFText("short"))
	assert.False(t, isReadablePDFText(" ­������������������"))
}

func TestParsePDF_NoTextFails(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(context.Background(), []byte("not a pdf at all"), model.FilePDF)
	require.Error(t, err)
}
