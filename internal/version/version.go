package version

// Package version holds build-time metadata injected via -ldflags. Fields
// left empty produce a development version string.

var (
	// Version is a SemVer tag like v0.3.1 for releases. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA for the build.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
)

// String returns a compact human-readable version: the release tag when set,
// "dev-<sha>" for builds from a known commit, otherwise "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		return "dev-" + Commit
	}
	return "dev"
}
