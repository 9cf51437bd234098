package version

import (
	"fmt"
	"strings"
)

// Version is the engine release, set at build time:
// go build -ldflags "-X buyer-intent-engine/internal/version.Version=v1.2.3"
var Version = "dev"

// BuildTime is when the binary was built
var BuildTime = "unknown"

// GitCommit is the commit the binary was built from
var GitCommit = "unknown"

// GetVersion returns the engine release, "dev" for unstamped builds
func GetVersion() string {
	if strings.TrimSpace(Version) == "" {
		return "dev"
	}
	return Version
}

// GetBuildInfo returns the build stamp reported by /health
func GetBuildInfo() map[string]string {
	return map[string]string{
		"version":    GetVersion(),
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}
}

// Summary formats the build stamp for startup logs and --version output.
func Summary() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (commit %s, built %s)", GetVersion(), commit, BuildTime)
}
