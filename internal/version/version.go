package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// BuildInfo is the JSON form of the build metadata.
type BuildInfo struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

func Info() BuildInfo {
	return BuildInfo{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}
}

// String formats the build metadata for the version command.
func String() string {
	return fmt.Sprintf("gridbot %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
