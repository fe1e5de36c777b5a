// Package version holds build-time identification for the autumndb compiler
// module, set via -ldflags the way the teacher stamps its own CLI builds.
package version

import "runtime"

// App is the semantic version of this module; overridden at link time.
var App = "0.0.0-dev"

// Build-time variables set via ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Platform returns the OS/architecture combination the binary was built for.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
