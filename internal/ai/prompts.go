package ai

import "fmt"

// maxStatementText bounds how much raw statement text is sent for
// extraction.
const maxStatementText = 4000

// extractionPrompt asks for structured transactions from raw statement text
// with an explicit JSON schema.
func extractionPrompt(text string) string {
	if len(text) > maxStatementText {
		text = text[:maxStatementText]
	}

	return fmt.Sprintf(`Analyze this bank statement and extract the transactions.

For each transaction provide:
- date (format YYYY-MM-DD)
- description
- amount (decimal number, negative for debits)
- reference (if available)

Respond in JSON:
{
  "transactions": [
    {"date": "YYYY-MM-DD", "name": "description", "amount": 0.00, "ref": "reference"}
  ]
}

Statement text:
%s`, text)
}

// scoringPrompt asks whether a bank transaction and a ledger entry describe
// the same payment.
func scoringPrompt(pair MatchPair) string {
	return fmt.Sprintf(`Determine whether these two records describe the same payment:

Bank transaction:
- Description: %s
- Amount: %s
- Date: %s

Ledger entry:
- Name: %s
- Reference: %s
- Amount: %s
- Date: %s
- Partner: %s

Respond with a confidence score between 0 and 1 and a short reason.
JSON format: {"score": 0.0, "reason": "..."}`,
		pair.BankDescription, pair.BankAmount, pair.BankDate,
		pair.EntryName, pair.EntryReference, pair.EntryAmount,
		pair.EntryDate, pair.EntryPartner)
}
