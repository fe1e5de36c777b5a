package mask

import (
	"context"
	"testing"
)

func TestComposeMaskMergesRoleReadIntoAnyOf(t *testing.T) {
	loader := newFakeLoader()
	loader.sessions["sess-1"] = newContract("session-1", `{"actor": "user-jdoe"}`)
	loader.bySlug["user-jdoe"] = newContract("user-jdoe", `{"roles": []}`)
	loader.bySlug["role-user-jdoe@1.0.0"] = newContract("role-user-jdoe@1.0.0", `{
		"read": {"properties": {"slug": {"type": "string"}}}
	}`)

	mask, err := ComposeMask(context.Background(), loader, "sess-1", map[string]any{
		"type": "object", "properties": map[string]any{"id": map[string]any{"type": "string"}},
	})
	if err != nil {
		t.Fatalf("ComposeMask: %v", err)
	}

	anyOf, ok := mask["anyOf"].([]any)
	if !ok || len(anyOf) != 1 {
		t.Fatalf("expected one anyOf branch from the actor's self-role, got %#v", mask["anyOf"])
	}
	props, ok := mask["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected a properties.markers constraint for a non-admin actor, got %#v", mask)
	}
	if _, ok := props["markers"]; !ok {
		t.Fatal("expected a markers constraint")
	}
}

func TestComposeMaskDeniesEverythingWithNoMatchingRole(t *testing.T) {
	loader := newFakeLoader()
	loader.sessions["sess-1"] = newContract("session-1", `{"actor": "user-jdoe"}`)
	loader.bySlug["user-jdoe"] = newContract("user-jdoe", `{"roles": []}`)
	// No "role-user-jdoe@1.0.0" registered — the only candidate role is missing.

	mask, err := ComposeMask(context.Background(), loader, "sess-1", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("ComposeMask: %v", err)
	}
	if _, ok := mask["not"]; !ok {
		t.Fatalf("expected the conservative deny-everything mask, got %#v", mask)
	}
}

func TestComposeMaskAdminSkipsMarkerConstraint(t *testing.T) {
	loader := newFakeLoader()
	loader.sessions["sess-1"] = newContract("session-1", `{"actor": "user-admin"}`)
	loader.bySlug["user-admin"] = newContract("user-admin", `{"roles": []}`)
	loader.bySlug["role-user-admin@1.0.0"] = newContract("role-user-admin@1.0.0", `{
		"read": {}
	}`)

	mask, err := ComposeMask(context.Background(), loader, "sess-1", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("ComposeMask: %v", err)
	}
	if _, ok := mask["properties"]; ok {
		t.Fatalf("expected no markers constraint for the admin actor, got %#v", mask)
	}
}

func TestComposeMaskRejectsInactiveSession(t *testing.T) {
	loader := newFakeLoader()
	s := newContract("session-1", `{"actor": "user-jdoe"}`)
	s.Active = false
	loader.sessions["sess-1"] = s

	_, err := ComposeMask(context.Background(), loader, "sess-1", map[string]any{"type": "object"})
	if err == nil {
		t.Fatal("expected an error for an inactive session")
	}
}

func TestComposeMaskMissingSessionErrors(t *testing.T) {
	loader := newFakeLoader()
	_, err := ComposeMask(context.Background(), loader, "does-not-exist", map[string]any{"type": "object"})
	if err == nil {
		t.Fatal("expected an error for a missing session")
	}
}

func TestComposeMaskEvaluatesEvalTemplateAgainstActor(t *testing.T) {
	loader := newFakeLoader()
	loader.sessions["sess-1"] = newContract("session-1", `{"actor": "user-jdoe"}`)
	loader.bySlug["user-jdoe"] = newContract("user-jdoe", `{"roles": []}`)
	loader.bySlug["role-user-jdoe@1.0.0"] = newContract("role-user-jdoe@1.0.0", `{
		"read": {"properties": {"owner": {"const": {"$eval": "user.slug"}}}}
	}`)

	mask, err := ComposeMask(context.Background(), loader, "sess-1", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("ComposeMask: %v", err)
	}
	anyOf := mask["anyOf"].([]any)
	branch := anyOf[0].(map[string]any)
	owner := branch["properties"].(map[string]any)["owner"].(map[string]any)
	if owner["const"] != "user-jdoe" {
		t.Fatalf("expected $eval to resolve to the actor's own slug, got %#v", owner["const"])
	}
}
