// Package version exposes the driftscope-agent build information shown
// by the version command. Release builds override the variables with
// -ldflags, for example:
//
//	go build -ldflags "-X github.com/driftlabs/driftscope/pkg/version.Version=v0.3.0"
package version

import (
	"runtime"
)

var (
	// Version is the semantic version of the agent.
	Version = "dev"

	// GitCommit is the git commit hash the agent was built from.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)
