// Package importing turns normalized bank statement rows into persisted
// statement transactions. Rows fail individually; a batch never aborts.
package importing

import (
	"strings"

	"github.com/bank-reconciliation-ledger/internal/domain/statement"
)

// TypeNormalizer maps bank-specific type tokens to the canonical statement
// transaction types. It is constructed once with its fixed table and injected
// wherever rows are imported.
type TypeNormalizer struct {
	table map[string]statement.TransactionType
}

// NewTypeNormalizer builds the normalizer with the OFX-style token table.
func NewTypeNormalizer() *TypeNormalizer {
	return &TypeNormalizer{
		table: map[string]statement.TransactionType{
			"CREDIT":      statement.TypeCredit,
			"DEBIT":       statement.TypeDebit,
			"INT":         statement.TypeInterest,
			"INTEREST":    statement.TypeInterest,
			"DIV":         statement.TypeDividend,
			"DIVIDEND":    statement.TypeDividend,
			"FEE":         statement.TypeFee,
			"SRVCHG":      statement.TypeFee,
			"DEP":         statement.TypeDeposit,
			"DEPOSIT":     statement.TypeDeposit,
			"ATM":         statement.TypeATM,
			"POS":         statement.TypePOS,
			"XFER":        statement.TypeTransfer,
			"TRANSFER":    statement.TypeTransfer,
			"CHECK":       statement.TypeCheck,
			"PAYMENT":     statement.TypePayment,
			"CASH":        statement.TypeCash,
			"DIRECTDEP":   statement.TypeDirectDeposit,
			"DIRECTDEBIT": statement.TypeDirectDebit,
			"REPEATPMT":   statement.TypeRecurringPayment,
		},
	}
}

// Normalize resolves a raw token; unknown tokens become OTHER.
func (n *TypeNormalizer) Normalize(raw string) statement.TransactionType {
	if t, ok := n.table[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t
	}
	return statement.TypeOther
}
