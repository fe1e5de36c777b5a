package mask

import (
	"context"

	"github.com/google/uuid"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/dberrors"
)

// fakeLoader is an in-memory Loader for tests, keyed by slug and session id.
type fakeLoader struct {
	sessions map[string]*contract.Contract
	bySlug   map[string]*contract.Contract
	orgs     map[string][]*contract.Contract // keyed by actor id string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		sessions: map[string]*contract.Contract{},
		bySlug:   map[string]*contract.Contract{},
		orgs:     map[string][]*contract.Contract{},
	}
}

func (f *fakeLoader) LoadSession(ctx context.Context, id string) (*contract.Contract, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, &dberrors.NoElement{Kind: "session", Ref: id}
	}
	return s, nil
}

func (f *fakeLoader) LoadBySlug(ctx context.Context, slug string) (*contract.Contract, error) {
	c, ok := f.bySlug[slug]
	if !ok {
		return nil, &dberrors.NoElement{Kind: "contract", Ref: slug}
	}
	return c, nil
}

func (f *fakeLoader) OrganizationsWithMember(ctx context.Context, actorID uuid.UUID) ([]*contract.Contract, error) {
	return f.orgs[actorID.String()], nil
}

func newContract(slug string, data string) *contract.Contract {
	return &contract.Contract{
		ID:     uuid.New(),
		Slug:   slug,
		Type:   "card@1.0.0",
		Active: true,
		Data:   []byte(data),
	}
}
