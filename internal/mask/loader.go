// Package mask implements C6: the permission-mask composer. ComposeMask
// turns a session id plus a caller-supplied query schema into the effective
// schema C4 actually compiles, folding in the caller's roles, organization
// markers and session scope — and recursing the same mask into every
// $$links branch, so a relational join can never see more than the mask
// alone would allow (SPEC_FULL.md §4.6).
package mask

import (
	"context"

	"github.com/google/uuid"

	"github.com/product-os/autumndb-sub002/internal/contract"
)

// AdminActorSlug is the one actor applyMarkers never constrains — mirrors
// the source's "admin bypasses marker filtering" carve-out (spec.md §4.6
// step 5).
const AdminActorSlug = "user-admin"

// Loader resolves the contracts ComposeMask needs. It is deliberately
// narrower than collaborators.Connection/Cache — a caller wires its own
// cache-then-database lookup behind these three methods; ComposeMask's own
// tests supply an in-memory FakeLoader instead.
type Loader interface {
	// LoadSession returns the session contract for id, or a *dberrors.NoElement
	// if it does not exist.
	LoadSession(ctx context.Context, id string) (*contract.Contract, error)
	// LoadBySlug returns the contract whose slug (including any "@version"
	// suffix) exactly matches slug, or a *dberrors.NoElement if none exists.
	// Used for both the actor reference and each "role-<slug>@1.0.0" lookup.
	LoadBySlug(ctx context.Context, slug string) (*contract.Contract, error)
	// OrganizationsWithMember returns every organization contract with a
	// "has member" link to actorID.
	OrganizationsWithMember(ctx context.Context, actorID uuid.UUID) ([]*contract.Contract, error)
}
