// Package ledger defines the double-entry core: transactions, their entries,
// and the balanced-posting invariant.
package ledger

import (
	"bytes"
	"sort"
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status tracks a transaction through its lifecycle.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusCleared    Status = "CLEARED"
	StatusReconciled Status = "RECONCILED"
	StatusVoided     Status = "VOIDED"
)

// Entry is one posting of a transaction. It carries a positive magnitude and
// debits, credits, or both. Posting an entry adds the amount to the debit
// account's balance and subtracts it from the credit account's.
type Entry struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	DebitAccountID  *uuid.UUID      `json:"debit_account_id,omitempty"`
	CreditAccountID *uuid.UUID      `json:"credit_account_id,omitempty"`
	Memo            string          `json:"memo,omitempty"`
}

// Transaction is a balanced set of entries posted against an organization's
// chart of accounts. Entries are exclusively owned and replaced only through
// an explicit re-post.
type Transaction struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	Status         Status    `json:"status"`
	Entries        []Entry   `json:"entries"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ValidateEntries enforces the posting invariants: at least one entry, every
// amount positive, every entry with at least one side set, and total debit
// allocations equal to total credit allocations across the whole set.
func ValidateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return shared.ValidationError{Field: "entries", Reason: "a transaction requires at least one entry"}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, e := range entries {
		if e.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.ValidationError{Field: "entries", Reason: "entry amount must be positive"}
		}
		if e.DebitAccountID == nil && e.CreditAccountID == nil {
			return shared.ValidationError{Field: "entries", Reason: "entry must debit or credit an account"}
		}
		if e.DebitAccountID != nil {
			totalDebit = totalDebit.Add(e.Amount)
		}
		if e.CreditAccountID != nil {
			totalCredit = totalCredit.Add(e.Amount)
		}
	}

	if !totalDebit.Equal(totalCredit) {
		return shared.ValidationError{
			Field:  "entries",
			Reason: "debits (" + totalDebit.StringFixed(2) + ") do not equal credits (" + totalCredit.StringFixed(2) + ")",
		}
	}
	return nil
}

// SignedAmount is the transaction's net ledger effect on one account:
// debited entries count positive, credited entries negative.
func (t *Transaction) SignedAmount(accountID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Entries {
		if e.DebitAccountID != nil && *e.DebitAccountID == accountID {
			total = total.Add(e.Amount)
		}
		if e.CreditAccountID != nil && *e.CreditAccountID == accountID {
			total = total.Sub(e.Amount)
		}
	}
	return total
}

// BalanceDeltas aggregates the per-account balance effect of an entry set.
// Applying a transaction means applying each delta once; reversing it means
// applying each negated.
func BalanceDeltas(entries []Entry) map[uuid.UUID]decimal.Decimal {
	deltas := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range entries {
		if e.DebitAccountID != nil {
			deltas[*e.DebitAccountID] = deltas[*e.DebitAccountID].Add(e.Amount)
		}
		if e.CreditAccountID != nil {
			deltas[*e.CreditAccountID] = deltas[*e.CreditAccountID].Sub(e.Amount)
		}
	}
	return deltas
}

// AccountIDs returns the distinct accounts an entry set touches, sorted so
// callers lock them in a stable order.
func AccountIDs(entries []Entry) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, e := range entries {
		for _, ref := range []*uuid.UUID{e.DebitAccountID, e.CreditAccountID} {
			if ref == nil {
				continue
			}
			if _, ok := seen[*ref]; !ok {
				seen[*ref] = struct{}{}
				ids = append(ids, *ref)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
