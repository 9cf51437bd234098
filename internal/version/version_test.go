package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, v, built, commit string) {
	t.Helper()
	oldV, oldB, oldC := Version, BuildTime, GitCommit
	Version, BuildTime, GitCommit = v, built, commit
	t.Cleanup(func() { Version, BuildTime, GitCommit = oldV, oldB, oldC })
}

func TestGetVersion(t *testing.T) {
	stamp(t, "", "unknown", "unknown")
	assert.Equal(t, "dev", GetVersion())

	stamp(t, "v1.4.0", "unknown", "unknown")
	assert.Equal(t, "v1.4.0", GetVersion())
}

func TestSummary(t *testing.T) {
	stamp(t, "v1.4.0", "2026-10-01T12:00:00Z", "0123456789abcdef")

	assert.Equal(t, "v1.4.0 (commit 0123456, built 2026-10-01T12:00:00Z)", Summary())
	assert.Equal(t, map[string]string{
		"version":    "v1.4.0",
		"build_time": "2026-10-01T12:00:00Z",
		"git_commit": "0123456789abcdef",
	}, GetBuildInfo())
}

func TestSummary_Unstamped(t *testing.T) {
	stamp(t, "dev", "unknown", "unknown")
	assert.Equal(t, "dev (commit unknown, built unknown)", Summary())
}
