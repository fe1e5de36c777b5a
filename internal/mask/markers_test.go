package mask

import (
	"regexp"
	"testing"
)

func TestCompoundMarkerConstraintEmptySetRequiresEmptyArray(t *testing.T) {
	c := compoundMarkerConstraint(nil)
	if c["maxItems"] != 0 {
		t.Fatalf("expected maxItems: 0 for an empty marker set, got %#v", c)
	}
}

func TestCompoundMarkerRegexMatchesSingleAndCompound(t *testing.T) {
	pattern := compoundMarkerRegex([]string{"org-acme", "org-beta"})
	re := regexp.MustCompile(pattern)

	for _, ok := range []string{"org-acme", "org-beta", "org-acme+org-beta"} {
		if !re.MatchString(ok) {
			t.Errorf("expected %q to match %s", ok, pattern)
		}
	}
	if re.MatchString("org-other") {
		t.Errorf("expected org-other not to match %s", pattern)
	}
}

func TestCompoundMarkerRegexEscapesMetacharacters(t *testing.T) {
	pattern := compoundMarkerRegex([]string{"a.b"})
	re := regexp.MustCompile(pattern)
	if re.MatchString("aXb") {
		t.Fatal("expected the literal dot to not act as a regex wildcard")
	}
	if !re.MatchString("a.b") {
		t.Fatal("expected the literal marker to still match")
	}
}

func TestBuildMarkerSetDeduplicates(t *testing.T) {
	set := buildMarkerSet("user-jdoe", []string{"user-jdoe", "org-acme"})
	if len(set) != 2 {
		t.Fatalf("expected the actor's own slug to be deduplicated, got %v", set)
	}
}
