package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime })

	Version, GitSHA, BuildTime = "1.2.3", "abc123", "2025-01-02"
	assert.Equal(t, "gridbot 1.2.3 (commit abc123, built 2025-01-02)", String())
	assert.Equal(t, BuildInfo{Version: "1.2.3", GitSHA: "abc123", BuildTime: "2025-01-02"}, Info())
}
