// Package version provides build-time version information.
// These variables are set via ldflags at build time.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// BuildNumber is the CI build number
	BuildNumber = "0"

	// Commit is the git commit SHA
	Commit = "none"
)

// Full returns the full version string for display.
func Full() string {
	if Version == "dev" {
		return "scorecloud version dev (built from source)"
	}
	return "scorecloud version " + Version
}

// UserAgent returns the user agent string for API requests.
// The service uses the OS/CPU descriptors for per-platform analytics.
func UserAgent() string {
	return fmt.Sprintf("scorecloud/%s.%s (%s %s)", Version, BuildNumber, runtime.GOOS, runtime.GOARCH)
}

// EditorSource identifies this client in authorization grant parameters.
func EditorSource() string {
	return "ScoreCloud Editor " + Version
}

// Platform returns the platform descriptor sent with authorization grants.
func Platform() string {
	return runtime.GOOS + " " + runtime.GOARCH
}
