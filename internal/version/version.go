// Package version carries build metadata stamped in at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/wayfarer/internal/version.Version=0.3.0
//	  -X github.com/soyeahso/wayfarer/internal/version.Commit=abc123
//	  -X github.com/soyeahso/wayfarer/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Build is the structured form of the build metadata, used by the
// status endpoints.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

// Current returns the build metadata of the running binary.
func Current() Build {
	return Build{
		Version: Version,
		Commit:  short(Commit),
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// Info returns a one-line version string.
func Info() string {
	b := Current()
	return fmt.Sprintf("wayfarer %s (commit: %s, built: %s, %s/%s)",
		b.Version, b.Commit, b.Date, b.OS, b.Arch)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
