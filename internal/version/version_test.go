package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

// withBuild pins the injected values and the embedded build info.
func withBuild(t *testing.T, version, commit, date string, bi *debug.BuildInfo) {
	t.Helper()
	origVersion, origCommit, origDate, origRead := Version, Commit, Date, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, Date, readBuildInfo = origVersion, origCommit, origDate, origRead
	})
	Version, Commit, Date = version, commit, date
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestStringWithoutCommit(t *testing.T) {
	withBuild(t, "dev", unknown, unknown, nil)
	if got := String(); !strings.HasPrefix(got, "waybarctl version dev (") {
		t.Errorf("Unexpected version string %q", got)
	}
}

func TestStringShortensCommit(t *testing.T) {
	withBuild(t, "1.2.0", "0123456789abcdef", "2026-01-02T03:04:05Z", nil)
	got := String()
	if !strings.Contains(got, "commit: 01234567,") || !strings.Contains(got, "built: 2026-01-02T03:04:05Z") {
		t.Errorf("Expected shortened commit and date, got %q", got)
	}

	withBuild(t, "1.2.0", "abc", "2026-01-02T03:04:05Z", nil)
	if got := String(); !strings.Contains(got, "commit: abc,") {
		t.Errorf("Short commits must not be truncated, got %q", got)
	}
}

func TestGetInfoFallsBackToBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.25.1",
		Main:      debug.Module{Path: "github.com/jmylchreest/waybarctl", Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "fedcba9876543210"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	withBuild(t, "dev", unknown, unknown, bi)

	info := GetInfo()
	if info.Version != "v0.3.1" || info.Commit != "fedcba9876543210" || info.Date != "2026-03-04T05:06:07Z" {
		t.Errorf("Expected build info values, got %+v", info)
	}
	if !info.Modified || info.GoVersion != "go1.25.1" {
		t.Errorf("Expected modified go1.25.1 build, got %+v", info)
	}
	if got := info.String(); !strings.Contains(got, "commit: fedcba98-dirty,") {
		t.Errorf("Expected dirty marker, got %q", got)
	}
	if Short() != "v0.3.1" {
		t.Errorf("Short() = %q, want v0.3.1", Short())
	}
}

func TestGetInfoPrefersInjectedValues(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fedcba9876543210"}},
	}
	withBuild(t, "1.0.0", "0123456789abcdef", "2026-01-02T03:04:05Z", bi)

	info := GetInfo()
	if info.Version != "1.0.0" || info.Commit != "0123456789abcdef" {
		t.Errorf("Injected values must win, got %+v", info)
	}
}

func TestGetInfoIgnoresDevelVersion(t *testing.T) {
	withBuild(t, "dev", unknown, unknown, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	info := GetInfo()
	if info.Version != "dev" || !strings.Contains(info.Platform, "/") || info.GoVersion == "" {
		t.Errorf("Unexpected info: %+v", info)
	}
}
