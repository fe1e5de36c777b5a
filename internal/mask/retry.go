package mask

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/dberrors"
)

// retryingLoader wraps a Loader so the transient collaborator I/O
// ComposeMask drives (session/actor/role/organization fetches, spec.md
// §4.6) gets a bounded exponential-backoff retry instead of failing the
// whole mask composition on a single blip. "Does not exist" outcomes
// (NoElement, InvalidSession, SessionExpired) are never retried — they are
// the collaborator answering correctly, not a fault.
type retryingLoader struct {
	inner Loader
}

func withRetry(l Loader) Loader {
	return &retryingLoader{inner: l}
}

func (r *retryingLoader) LoadSession(ctx context.Context, id string) (*contract.Contract, error) {
	var out *contract.Contract
	err := retryTransient(ctx, func() error {
		var err error
		out, err = r.inner.LoadSession(ctx, id)
		return classifyRetry(err)
	})
	return out, err
}

func (r *retryingLoader) LoadBySlug(ctx context.Context, slug string) (*contract.Contract, error) {
	var out *contract.Contract
	err := retryTransient(ctx, func() error {
		var err error
		out, err = r.inner.LoadBySlug(ctx, slug)
		return classifyRetry(err)
	})
	return out, err
}

func (r *retryingLoader) OrganizationsWithMember(ctx context.Context, actorID uuid.UUID) ([]*contract.Contract, error) {
	var out []*contract.Contract
	err := retryTransient(ctx, func() error {
		var err error
		out, err = r.inner.OrganizationsWithMember(ctx, actorID)
		return classifyRetry(err)
	})
	return out, err
}

// classifyRetry marks the collaborator's own "no such thing" answers as
// backoff.Permanent so a missing session/role/actor fails fast instead of
// retrying three times for no reason.
func classifyRetry(err error) error {
	if err == nil {
		return nil
	}
	var noElem *dberrors.NoElement
	var invalidSession *dberrors.InvalidSession
	var expired *dberrors.SessionExpired
	if errors.As(err, &noElem) || errors.As(err, &invalidSession) || errors.As(err, &expired) {
		return backoff.Permanent(err)
	}
	return err
}

func retryTransient(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}
