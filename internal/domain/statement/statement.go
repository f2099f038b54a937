// Package statement defines reconciliation statements and the bank rows
// imported into them.
package statement

import (
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status tracks a statement's lifecycle. COMPLETED is terminal.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// TransactionType is the canonical bank transaction kind, normalized from
// whatever token the bank's format carried.
type TransactionType string

const (
	TypeCredit           TransactionType = "CREDIT"
	TypeDebit            TransactionType = "DEBIT"
	TypeInterest         TransactionType = "INTEREST"
	TypeDividend         TransactionType = "DIVIDEND"
	TypeFee              TransactionType = "FEE"
	TypeDeposit          TransactionType = "DEPOSIT"
	TypeATM              TransactionType = "ATM"
	TypePOS              TransactionType = "POS"
	TypeTransfer         TransactionType = "TRANSFER"
	TypeCheck            TransactionType = "CHECK"
	TypePayment          TransactionType = "PAYMENT"
	TypeCash             TransactionType = "CASH"
	TypeDirectDeposit    TransactionType = "DIRECT_DEPOSIT"
	TypeDirectDebit      TransactionType = "DIRECT_DEBIT"
	TypeRecurringPayment TransactionType = "RECURRING_PAYMENT"
	TypeOther            TransactionType = "OTHER"
)

// Statement is one account's reconciliation period against an external bank
// statement. ReconciledBalance is set only on completion.
type Statement struct {
	ID                uuid.UUID        `json:"id"`
	OrganizationID    uuid.UUID        `json:"organization_id"`
	AccountID         uuid.UUID        `json:"account_id"`
	PeriodStart       time.Time        `json:"period_start"`
	PeriodEnd         time.Time        `json:"period_end"`
	EndingBalance     decimal.Decimal  `json:"ending_balance"`
	Status            Status           `json:"status"`
	ReconciledBalance *decimal.Decimal `json:"reconciled_balance,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// New creates an IN_PROGRESS statement for one account and period.
func New(organizationID, accountID uuid.UUID, periodStart, periodEnd time.Time, endingBalance decimal.Decimal) (*Statement, error) {
	if accountID == uuid.Nil {
		return nil, shared.ValidationError{Field: "account_id", Reason: "account is required"}
	}
	if periodEnd.Before(periodStart) {
		return nil, shared.ValidationError{Field: "period_end", Reason: "period end cannot precede period start"}
	}

	now := time.Now()
	return &Statement{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		AccountID:      accountID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		EndingBalance:  endingBalance,
		Status:         StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Transaction is one imported bank statement row. Rows are never deleted once
// imported; only the match link changes. Positive amounts are inflows to the
// account. MatchedTransactionID is a weak reference: neither side cascades.
type Transaction struct {
	ID                   uuid.UUID       `json:"id"`
	StatementID          uuid.UUID       `json:"statement_id"`
	Date                 time.Time       `json:"date"`
	Description          string          `json:"description"`
	Amount               decimal.Decimal `json:"amount"`
	Reference            string          `json:"reference,omitempty"`
	Type                 TransactionType `json:"type"`
	MatchedTransactionID *uuid.UUID      `json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}
