// Package version reports the mailwright build identity. Release builds set
// the package variables through -ldflags; development builds fall back to the
// VCS settings embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknown = "unknown"

// Set at build time:
//
//	go build -ldflags "-X github.com/conneroisu/mailwright/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = unknown
	BuildTime = unknown
	BuildUser = unknown
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	BuildUser string    `json:"build_user,omitempty" yaml:"build_user,omitempty"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// GetBuildInfo collects the build identity.
func GetBuildInfo() BuildInfo {
	user := BuildUser
	if user == unknown {
		user = ""
	}
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		BuildUser: user,
		Dirty:     vcsSetting("vcs.modified") == "true",
	}
}

// GetVersion returns the release version, the module version recorded by
// `go install`, or dev-<short commit> for local builds.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	if rev := vcsSetting("vcs.revision"); len(rev) >= 7 {
		return "dev-" + rev[:7]
	}
	return "dev"
}

// GetGitCommit returns the full commit hash or "unknown".
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != unknown {
		return GitCommit
	}
	if rev := vcsSetting("vcs.revision"); rev != "" {
		return rev
	}
	return unknown
}

// GetShortVersion returns a one-line version for banners and /healthz.
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()
	if commit == unknown || len(commit) < 7 || strings.HasPrefix(v, "dev-") {
		return v
	}
	if v == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion returns the multi-line output of `mailwright version`.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	lines := []string{"mailwright " + info.Version}
	if info.GitCommit != unknown {
		commit := info.GitCommit
		if info.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "  commit:   "+commit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "  built:    "+info.BuildTime.Format(time.RFC3339))
	}
	if info.BuildUser != "" {
		lines = append(lines, "  by:       "+info.BuildUser)
	}
	lines = append(lines,
		"  go:       "+info.GoVersion,
		"  platform: "+info.Platform,
	)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a release version.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

func vcsSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// parseBuildTime returns the zero time for empty or unparseable values.
func parseBuildTime(s string) time.Time {
	if s == "" || s == unknown {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
