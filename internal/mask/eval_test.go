package mask

import "testing"

func TestEvalTemplateSubstitutesDottedPath(t *testing.T) {
	ctx := map[string]any{"user": map[string]any{"slug": "user-jdoe"}}
	node := map[string]any{"const": map[string]any{"$eval": "user.slug"}}

	out := evalTemplate(node, ctx).(map[string]any)
	if out["const"] != "user-jdoe" {
		t.Fatalf("const = %#v, want user-jdoe", out["const"])
	}
}

func TestEvalTemplateLeavesUnrelatedKeysAlone(t *testing.T) {
	ctx := map[string]any{"user": map[string]any{"slug": "user-jdoe"}}
	node := map[string]any{"type": "object", "properties": map[string]any{
		"owner": map[string]any{"const": map[string]any{"$eval": "user.slug"}},
	}}

	out := evalTemplate(node, ctx).(map[string]any)
	if out["type"] != "object" {
		t.Fatal("expected unrelated keys to survive untouched")
	}
	owner := out["properties"].(map[string]any)["owner"].(map[string]any)
	if owner["const"] != "user-jdoe" {
		t.Fatalf("nested $eval did not resolve: %#v", owner)
	}
}

func TestEvalTemplateUnresolvedPathIsNil(t *testing.T) {
	out := evalTemplate(map[string]any{"$eval": "user.missing"}, map[string]any{"user": map[string]any{}})
	if out != nil {
		t.Fatalf("expected nil for an unresolved path, got %#v", out)
	}
}
