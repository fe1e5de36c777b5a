// Package semver implements C7: version-aware sort-key generation. Sorting
// by "version" is not lexicographic over the slug's rendered version text —
// it is five composite keys, with the prerelease component always sorted
// ascending as the *primary* key (spec.md §4.4.2, §8 invariant 4): since
// an empty prerelease string sorts before any non-empty one, a plain
// ascending text comparison on version_prerelease alone is what puts every
// release ahead of every prerelease, regardless of the caller's requested
// direction for the other four keys.
package semver

import (
	"fmt"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
)

// OrderKeys emits the five composite ORDER BY keys spec.md §4.4.2 requires
// for sortBy="version". alias is the table alias the version columns live
// under (the root table or a linked-contract join alias).
func OrderKeys(alias string, desc bool) []sqlbuild.OrderKey {
	col := func(name string) string {
		return fmt.Sprintf("%s.%s", alias, name)
	}

	return []sqlbuild.OrderKey{
		{Expr: col("version_prerelease"), Desc: false},
		{Expr: col("version_major"), Desc: desc},
		{Expr: col("version_minor"), Desc: desc},
		{Expr: col("version_patch"), Desc: desc},
		{Expr: col("version_build"), Desc: desc},
	}
}

// Compare orders two versions the same way OrderKeys does, for use by
// tests that need a ground truth independent of what Postgres returns.
// Returns <0, 0, >0 as a.Compare(b).
func Compare(a, b contract.VersionSpec) int {
	if a.Prerelease != b.Prerelease {
		if a.Prerelease < b.Prerelease {
			return -1
		}
		return 1
	}
	if d := a.Major - b.Major; d != 0 {
		return d
	}
	if d := a.Minor - b.Minor; d != 0 {
		return d
	}
	if d := a.Patch - b.Patch; d != 0 {
		return d
	}
	if a.Build != b.Build {
		if a.Build < b.Build {
			return -1
		}
		return 1
	}
	return 0
}
