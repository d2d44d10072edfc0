// Package version holds the version of the badges node.
package version

// Flag contains extra info about the version. It is helpful for tracking
// versions while developing. It must be empty on release branches.
const Flag = ""

var (
	// Version is the full version string
	Version = "0.2.0"

	// GitCommit is set with --ldflags "-X github.com/peerbadge/badges/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}
