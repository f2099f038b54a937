package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations. Every read is scoped to
// one organization; an id outside that scope behaves as not found.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Account, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*Account, error)

	// LockForUpdate acquires a row lock for the duration of the enclosing
	// transaction. Callers must lock accounts in sorted id order.
	LockForUpdate(ctx context.Context, orgID, id uuid.UUID) (*Account, error)

	// ApplyDelta adds delta to the cached balance under optimistic locking.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal, version int) error

	// SetBalance overwrites the cached balance with a certified value.
	SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int) error

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure.
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}
