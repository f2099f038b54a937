package statement

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages statement and statement-transaction persistence.
// Statements exclusively own their rows.
type Repository interface {
	Create(ctx context.Context, st *Statement) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Statement, error)
	List(ctx context.Context, orgID, accountID uuid.UUID) ([]*Statement, error)

	// LockForUpdate row-locks the statement for the enclosing transaction.
	// Auto-match and completion serialize on this lock.
	LockForUpdate(ctx context.Context, orgID, id uuid.UUID) (*Statement, error)

	// Complete marks the statement COMPLETED and persists the reconciled
	// balance. The transition is terminal.
	Complete(ctx context.Context, id uuid.UUID, reconciledBalance decimal.Decimal) error

	CreateTransaction(ctx context.Context, st *Transaction) error
	ListTransactions(ctx context.Context, statementID uuid.UUID) ([]*Transaction, error)
	ListUnmatched(ctx context.Context, statementID uuid.UUID) ([]*Transaction, error)
	ListMatched(ctx context.Context, statementID uuid.UUID) ([]*Transaction, error)

	// SetMatch links or, with uuid.Nil, clears a row's matched transaction.
	SetMatch(ctx context.Context, statementTransactionID, transactionID uuid.UUID) error

	// ClearMatches removes every link to the transaction within one statement
	// and reports how many rows were cleared.
	ClearMatches(ctx context.Context, statementID, transactionID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}
