package mask

import "testing"

func TestMergeMaskInLinksAppliesMaskToLinkSubSchema(t *testing.T) {
	mask := map[string]any{"type": "object", "required": []any{"markers"}}
	caller := map[string]any{
		"type": "object",
		"$$links": map[string]any{
			"is attached to": map[string]any{"type": "object", "required": []any{"id"}},
		},
	}

	out, err := mergeMaskInLinks(caller, mask)
	if err != nil {
		t.Fatalf("mergeMaskInLinks: %v", err)
	}
	links := out["$$links"].(map[string]any)
	sub := links["is attached to"].(map[string]any)
	req := sub["required"].([]any)
	if len(req) != 2 {
		t.Fatalf("expected the mask's required entries merged into the link sub-schema, got %v", req)
	}
}

func TestMergeMaskInLinksDoesNotMutateCaller(t *testing.T) {
	linkSchema := map[string]any{"type": "object"}
	caller := map[string]any{
		"$$links": map[string]any{"is attached to": linkSchema},
	}
	mask := map[string]any{"required": []any{"markers"}}

	if _, err := mergeMaskInLinks(caller, mask); err != nil {
		t.Fatalf("mergeMaskInLinks: %v", err)
	}
	if _, ok := linkSchema["required"]; ok {
		t.Fatal("expected the original link sub-schema value to be left untouched")
	}
}

func TestMergeMaskInLinksRecursesThroughNestedLinks(t *testing.T) {
	mask := map[string]any{"required": []any{"markers"}}
	caller := map[string]any{
		"$$links": map[string]any{
			"is attached to": map[string]any{
				"$$links": map[string]any{
					"is owned by": map[string]any{"type": "object"},
				},
			},
		},
	}

	out, err := mergeMaskInLinks(caller, mask)
	if err != nil {
		t.Fatalf("mergeMaskInLinks: %v", err)
	}
	outer := out["$$links"].(map[string]any)["is attached to"].(map[string]any)
	inner := outer["$$links"].(map[string]any)["is owned by"].(map[string]any)
	req, ok := inner["required"].([]any)
	if !ok || len(req) != 1 {
		t.Fatalf("expected the mask to recurse into a nested $$links entry, got %#v", inner)
	}
}
