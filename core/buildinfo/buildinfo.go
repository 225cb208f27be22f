package buildinfo

import "strings"

// These variables are set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/exchangebot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/exchangebot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/exchangebot/core/buildinfo.Date=2026-01-30T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the build identity as "version (commit, date)".
func String() string {
	parts := []string{strings.TrimSpace(Commit)}
	if d := strings.TrimSpace(Date); d != "" {
		parts = append(parts, d)
	}
	return strings.TrimSpace(Version) + " (" + strings.Join(parts, ", ") + ")"
}
