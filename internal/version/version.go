// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X photocarve/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String describes the build, e.g. "photocarve 0.1.0 (abc1234, built 2024-05-01T10:00Z, go1.24.2)".
func String() string {
	return fmt.Sprintf("photocarve %s (%s, built %s, %s)", Version, shortCommit(), BuildTime, runtime.Version())
}

// UserAgent identifies the binary in logs and written metadata.
func UserAgent() string {
	return fmt.Sprintf("photocarve/%s (%s; %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
