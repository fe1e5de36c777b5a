package semver

import (
	"sort"
	"testing"

	"github.com/product-os/autumndb-sub002/internal/contract"
)

func mustParse(t *testing.T, raw string) contract.VersionSpec {
	t.Helper()
	v, err := contract.ParseVersion(raw)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", raw, err)
	}
	return v
}

// TestCompareScenarioS4 reproduces spec.md §8 scenario S4 exactly.
func TestCompareScenarioS4(t *testing.T) {
	raw := []string{
		"1.0.0-beta", "1.0.0", "1.0.0-alpha+001", "1.0.0-beta+001", "1.0.1", "1.1.0",
	}
	versions := make([]contract.VersionSpec, len(raw))
	for i, r := range raw {
		versions[i] = mustParse(t, r)
	}

	sort.Slice(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})

	want := []string{
		"1.0.0", "1.0.1", "1.1.0", "1.0.0-alpha+001", "1.0.0-beta", "1.0.0-beta+001",
	}
	for i, v := range versions {
		if got := v.String(); got != want[i] {
			t.Fatalf("position %d: got %s, want %s (full order: %v)", i, got, want[i], versions)
		}
	}
}

func TestCompareReleaseAboveAnyPrerelease(t *testing.T) {
	release := mustParse(t, "2.0.0")
	pre := mustParse(t, "100.0.0-zzz")
	if Compare(release, pre) >= 0 {
		t.Fatalf("expected release %s to sort before prerelease %s regardless of major version", release, pre)
	}
}

func TestOrderKeysShape(t *testing.T) {
	keys := OrderKeys("cards", false)
	if len(keys) != 5 {
		t.Fatalf("expected 5 order keys, got %d", len(keys))
	}
	if keys[0].Desc {
		t.Fatalf("prerelease key must always be ascending")
	}
	if keys[0].Expr != "cards.version_prerelease" {
		t.Fatalf("unexpected primary key expr: %s", keys[0].Expr)
	}
}
