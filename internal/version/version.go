// Package version carries build information of the garnet binary.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// SilenceEnv disables the development build notice when set to any value.
const SilenceEnv = "GARNET_SILENCE_DEV_MESSAGE"

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// IsRelease reports whether Version carries no pre-release suffix.
func IsRelease() bool {
	return Version != "" && !strings.Contains(Version, "-")
}

// Full is the plain one-line version string; it is also the engine version
// part of cache keys.
func Full() string {
	var b strings.Builder
	b.WriteString("garnet " + Version)
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		b.WriteString(" (" + commit + ")")
	}
	if BuildDate != "" {
		b.WriteString(" built " + BuildDate)
	}
	return b.String()
}

// Pretty colors the major, minor and patch parts of Version.
func Pretty() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := versionMajorColor.Sprint(parts[0]) + "." + versionMinorColor.Sprint(parts[1]) + "." + versionPatchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// DevMessage is the notice printed by non-release builds, or "" when it is
// silenced through SilenceEnv (getenv is os.Getenv outside tests).
func DevMessage(getenv func(string) string) string {
	if IsRelease() || getenv(SilenceEnv) != "" {
		return ""
	}
	return fmt.Sprintf("👋 This is a development build of garnet (%s). Set %s=1 to hide this message.", Version, SilenceEnv)
}
