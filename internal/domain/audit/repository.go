package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists audit events. Writes are best-effort from the caller's
// point of view: services log failures and continue.
type Repository interface {
	Record(ctx context.Context, event *Event) error
	ListByEntity(ctx context.Context, orgID, entityID uuid.UUID, limit, offset int) ([]*Event, error)
	CountByEntity(ctx context.Context, orgID, entityID uuid.UUID) (int64, error)
}
