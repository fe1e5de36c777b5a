package contract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/product-os/autumndb-sub002/internal/dberrors"
)

// VersionSpec is the parsed form of a slug's version component
// (spec.md §6: major[.minor[.patch]][-prerelease][+build] or "latest").
type VersionSpec struct {
	Latest     bool
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// ParseSlug splits a "<base>[@<version>]" slug into its base and version.
// A missing version component is equivalent to "@latest".
func ParseSlug(raw string) (base string, version VersionSpec, err error) {
	base = raw
	versionRaw := "latest"

	if idx := strings.LastIndex(raw, "@"); idx >= 0 {
		base = raw[:idx]
		versionRaw = raw[idx+1:]
	}

	if base == "" {
		return "", VersionSpec{}, &dberrors.InvalidVersion{Raw: raw, Reason: "missing slug base"}
	}

	version, err = ParseVersion(versionRaw)
	if err != nil {
		return "", VersionSpec{}, err
	}
	return base, version, nil
}

// ParseVersion parses the version grammar in isolation (used both by
// ParseSlug and directly by the semver-aware sort key builder).
func ParseVersion(raw string) (VersionSpec, error) {
	if raw == "" || raw == "latest" {
		return VersionSpec{Latest: true}, nil
	}

	rest := raw
	var build string
	if idx := strings.Index(rest, "+"); idx >= 0 {
		build = rest[idx+1:]
		rest = rest[:idx]
	}

	var prerelease string
	if idx := strings.Index(rest, "-"); idx >= 0 {
		prerelease = rest[idx+1:]
		rest = rest[:idx]
	}

	parts := strings.Split(rest, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return VersionSpec{}, &dberrors.InvalidVersion{Raw: raw, Reason: "expected major[.minor[.patch]]"}
	}

	nums := [3]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return VersionSpec{}, &dberrors.InvalidVersion{Raw: raw, Reason: fmt.Sprintf("component %q is not a non-negative integer", p)}
		}
		nums[i] = n
	}

	return VersionSpec{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		Prerelease: prerelease,
		Build:      build,
	}, nil
}

// String renders the version back to its slug-suffix representation.
func (v VersionSpec) String() string {
	if v.Latest {
		return "latest"
	}
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}
