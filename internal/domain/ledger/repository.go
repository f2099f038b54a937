package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Filter enumerates the recognized transaction query fields. Zero values
// mean "not filtered".
type Filter struct {
	AccountID uuid.UUID
	DateFrom  time.Time
	DateTo    time.Time
	AmountMin decimal.Decimal
	AmountMax decimal.Decimal
	TextQuery string
	Statuses  []Status
	Limit     int
	Offset    int
}

// Repository manages transaction and entry persistence. Transactions own
// their entries; both are written and deleted together.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, orgID uuid.UUID, filter Filter) ([]*Transaction, error)

	// ReplaceEntries swaps the full entry set during a re-post.
	ReplaceEntries(ctx context.Context, transactionID uuid.UUID, entries []Entry) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListMatchCandidates returns CLEARED transactions for the account dated
	// on or before cutoff and not linked to any statement transaction,
	// entries included, in stable creation order.
	ListMatchCandidates(ctx context.Context, orgID, accountID uuid.UUID, cutoff time.Time) ([]*Transaction, error)

	// IsMatched reports whether any statement transaction references the
	// transaction.
	IsMatched(ctx context.Context, id uuid.UUID) (bool, error)

	WithTx(tx pgx.Tx) Repository
}
