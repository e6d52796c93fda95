// Package version holds build-time version information for the coursebot
// binary. The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/coursebot-go/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/coursebot-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/coursebot-go/internal/version.BuildDate=2025-01-01"
package version

import "fmt"

// Version is the semantic version of the binary. Defaults to "dev".
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date (RFC3339).
var BuildDate = "unknown"

// String renders the build info on one line, as printed by `coursebot version`.
func String() string {
	return fmt.Sprintf("coursebot %s (commit %s, built %s)", Version, Commit, BuildDate)
}
