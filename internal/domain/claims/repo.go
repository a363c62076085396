package claims

import (
	"context"

	"github.com/google/uuid"
)

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetByCode(ctx context.Context, code string) (*Claim, error)
	// List pages through claims, optionally filtered by status (0 = all).
	List(ctx context.Context, status, limit, offset int) ([]*Claim, error)
	Count(ctx context.Context, status int) (int, error)
	Update(ctx context.Context, c *Claim) error
	// Line items
	AddItem(ctx context.Context, li *LineItem) error
	GetItems(ctx context.Context, claimID uuid.UUID) ([]*LineItem, error)
	GetItemByTarget(ctx context.Context, claimID uuid.UUID, kind LineKind, targetID uuid.UUID) (*LineItem, error)
	UpdateItem(ctx context.Context, li *LineItem) error
}

// RegistryRepository reads the reference registries the converters resolve
// against: claim administrators, reviewer feedback, and the ICD registry.
type RegistryRepository interface {
	GetAdmin(ctx context.Context, id uuid.UUID) (*ClaimAdmin, error)
	GetFeedback(ctx context.Context, id uuid.UUID) (*Feedback, error)
	GetDiagnosisByCode(ctx context.Context, code string) (*Diagnosis, error)
}
