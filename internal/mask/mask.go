package mask

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/dberrors"
)

type sessionData struct {
	Actor     string         `json:"actor"`
	Scope     map[string]any `json:"scope,omitempty"`
	ExpiresAt *time.Time     `json:"expiration_date,omitempty"`
}

type actorData struct {
	Roles []string `json:"roles"`
}

type roleData struct {
	Read map[string]any `json:"read"`
}

// ComposeMask runs spec.md §4.6's eight-step algorithm end to end: load the
// session and its actor, collect and evaluate the actor's roles, fold in
// marker and scope constraints, and merge the result into every branch of
// caller — including recursively into every "$$links" sub-schema, so a
// caller can never use a relational join to see more than the mask alone
// would allow.
//
// Unlike a session-cached mask, ComposeMask re-evaluates on every call
// (spec.md's Open Question (c), resolved in DESIGN.md): a stale cached mask
// that under-restricts after a role or membership change is a security
// defect, and nothing in spec.md describes an invalidation signal precise
// enough to cache against safely.
func ComposeMask(ctx context.Context, loader Loader, sessionID string, caller map[string]any) (map[string]any, error) {
	loader = withRetry(loader)

	session, err := loader.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, &dberrors.InvalidSession{SessionID: sessionID}
	}

	var sd sessionData
	if err := gojson.Unmarshal(session.Data, &sd); err != nil {
		return nil, &dberrors.InvalidSession{SessionID: sessionID}
	}
	if sd.ExpiresAt != nil && sd.ExpiresAt.Before(time.Now()) {
		return nil, &dberrors.SessionExpired{SessionID: sessionID}
	}

	actor, err := loader.LoadBySlug(ctx, sd.Actor)
	if err != nil {
		return nil, err
	}
	actorMap := contractToMap(actor)
	evalCtx := map[string]any{"user": actorMap}

	var ad actorData
	_ = gojson.Unmarshal(actor.Data, &ad)

	roleReads, err := loadRoleReads(ctx, loader, actor.Slug, ad.Roles, evalCtx)
	if err != nil {
		return nil, err
	}

	if len(roleReads) == 0 {
		// Conservative default (spec.md §6): no matching role means the
		// effective mask accepts nothing, full stop — not even scope can
		// widen a mask that never matched a role in the first place.
		return map[string]any{"type": "object", "not": map[string]any{}}, nil
	}

	maskSchema := map[string]any{
		"type": "object",
		"anyOf": roleReads,
	}

	if actor.Slug != AdminActorSlug {
		orgs, err := loader.OrganizationsWithMember(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		orgSlugs := make([]string, len(orgs))
		for i, org := range orgs {
			orgSlugs[i] = org.Slug
		}
		maskSchema["properties"] = map[string]any{
			"markers": compoundMarkerConstraint(buildMarkerSet(actor.Slug, orgSlugs)),
		}
		maskSchema["required"] = []any{"markers"}
	}

	if len(sd.Scope) > 0 {
		merged, err := deepMerge(maskSchema, sd.Scope)
		if err != nil {
			return nil, err
		}
		maskSchema = merged
	}

	rewrittenCaller, err := mergeMaskInLinks(caller, maskSchema)
	if err != nil {
		return nil, err
	}

	evaluatedAny := evalTemplate(rewrittenCaller, evalCtx)
	evaluatedCaller, ok := evaluatedAny.(map[string]any)
	if !ok {
		evaluatedCaller = rewrittenCaller
	}

	return deepMerge(maskSchema, evaluatedCaller)
}

// loadRoleReads collects role slugs (the actor's own slug plus every entry
// in actor.data.roles), loads "role-<slug>@1.0.0" for each, evaluates its
// data.read schema against evalCtx, strips the top-level $id, and returns
// the surviving read schemas. A role slug that does not resolve to a
// contract is skipped, not an error (spec.md §4.6 step 3).
//
// Role fetches are order-insensitive (the result folds into an "anyOf" and
// is deduplicated by role set, not by fetch order) so they fan out
// concurrently via errgroup rather than one at a time.
func loadRoleReads(ctx context.Context, loader Loader, actorSlug string, roles []string, evalCtx map[string]any) ([]any, error) {
	slugs := dedupeStrings(append([]string{actorSlug}, roles...))

	reads := make([]any, len(slugs))
	present := make([]bool, len(slugs))

	g, gctx := errgroup.WithContext(ctx)
	for i, slug := range slugs {
		i, slug := i, slug
		g.Go(func() error {
			roleSlug := fmt.Sprintf("role-%s@1.0.0", slug)
			role, err := loader.LoadBySlug(gctx, roleSlug)
			if err != nil {
				var noElem *dberrors.NoElement
				if errors.As(err, &noElem) {
					return nil
				}
				return err
			}

			var rd roleData
			if err := gojson.Unmarshal(role.Data, &rd); err != nil || rd.Read == nil {
				return nil
			}

			evaluated := evalTemplate(rd.Read, evalCtx)
			readSchema, ok := evaluated.(map[string]any)
			if !ok {
				return nil
			}
			delete(readSchema, "$id")
			reads[i] = readSchema
			present[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]any, 0, len(slugs))
	for i, ok := range present {
		if ok {
			out = append(out, reads[i])
		}
	}
	return out, nil
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// contractToMap projects the fields of c that a role's "$eval": "user.…"
// template is expected to address, keyed to match the lower-case,
// dotted-path convention evalTemplate resolves against.
func contractToMap(c *contract.Contract) map[string]any {
	var data map[string]any
	_ = gojson.Unmarshal(c.Data, &data)

	return map[string]any{
		"id":      c.ID.String(),
		"slug":    c.Slug,
		"type":    c.Type,
		"data":    data,
		"markers": toAnySlice(c.Markers),
		"tags":    toAnySlice(c.Tags),
	}
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
