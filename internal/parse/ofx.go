package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in SGML-style OFX exports
// before handing the content to ofxgo.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case per the OFX schema.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some banks emit opening tags without their closing angle bracket.
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// parseOFX parses an OFX/QFX statement. Only the first bank statement in the
// file is imported; per-record failures are logged and skipped.
func (p *Parser) parseOFX(_ context.Context, data []byte) (*Result, error) {
	processed := preprocessOFX(string(data))

	resp, err := ofxgo.ParseResponse(strings.NewReader(processed))
	if err != nil {
		return nil, common.NewFileFormatError("ofx", fmt.Errorf("failed to parse OFX file: %w", err))
	}

	var stmt *ofxgo.StatementResponse
	for _, msg := range resp.Bank {
		if s, ok := msg.(*ofxgo.StatementResponse); ok {
			stmt = s
			break
		}
	}
	if stmt == nil {
		return nil, common.NewFileFormatError("ofx", fmt.Errorf("no bank statement in OFX file"))
	}

	result := &Result{}

	accountNumber := string(stmt.BankAcctFrom.AcctID)

	if !stmt.DtAsOf.IsZero() {
		// OFX carries a single point-in-time ledger balance; it seeds both
		// ends of the statement.
		balFloat, _ := stmt.BalAmt.Float64()
		balance := decimal.NewFromFloat(balFloat)
		result.OpeningBalance = balance
		result.ClosingBalance = balance
		result.HasBalances = true
	}

	if stmt.BankTranList == nil {
		result.logf("statement %s carries no transaction list", accountNumber)
		return result, nil
	}

	if !stmt.BankTranList.DtStart.IsZero() {
		start := stmt.BankTranList.DtStart.Time
		result.PeriodStart = &start
	}
	if !stmt.BankTranList.DtEnd.IsZero() {
		end := stmt.BankTranList.DtEnd.Time
		result.PeriodEnd = &end
	}

	for i, ofxTx := range stmt.BankTranList.Transactions {
		txn, err := convertOFXTransaction(ofxTx, accountNumber, i)
		if err != nil {
			result.logf("OFX record skipped: %v", &common.RowError{Row: i + 1, Err: err})
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	result.fillPeriodFromTransactions()
	return result, nil
}

// convertOFXTransaction maps one OFX record to a transaction. The FITID is
// the bank's own stable identifier and feeds deduplication directly.
func convertOFXTransaction(ofxTx ofxgo.Transaction, accountNumber string, seq int) (model.Transaction, error) {
	if ofxTx.DtPosted.IsZero() {
		return model.Transaction{}, fmt.Errorf("missing posting date")
	}

	amountFloat, _ := ofxTx.TrnAmt.Float64()

	txn := model.Transaction{
		ID:            uuid.NewString(),
		Date:          ofxTx.DtPosted.Time,
		Amount:        decimal.NewFromFloat(amountFloat),
		Description:   ofxDescription(ofxTx),
		Reference:     string(ofxTx.CheckNum),
		PartnerName:   ofxPartnerName(ofxTx),
		AccountNumber: accountNumber,
		Sequence:      seq,
		State:         model.StateNotMatched,
	}
	if txn.Reference == "" {
		txn.Reference = string(ofxTx.RefNum)
	}
	txn.DedupKey = txn.GenerateDedupKey(string(ofxTx.FiTID))

	return txn, nil
}

func ofxDescription(tx ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	memo := strings.TrimSpace(string(tx.Memo))
	switch {
	case name != "" && memo != "" && !strings.EqualFold(name, memo):
		return name + " " + memo
	case name != "":
		return name
	case memo != "":
		return memo
	default:
		return "/"
	}
}

func ofxPartnerName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	return strings.TrimSpace(string(tx.Name))
}
