package version

import "testing"

func withBuild(t *testing.T, v, c, b string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = v, c, b
}

func TestString(t *testing.T) {
	tests := []struct {
		name                string
		version, commit, bt string
		want                string
	}{
		{"defaults", "dev", "unknown", "unknown", "dev (unknown) built unknown"},
		{"release", "0.3.0", "a1b2c3d", "2026-10-01T12:00:00Z", "0.3.0 (a1b2c3d) built 2026-10-01T12:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuild(t, tt.version, tt.commit, tt.bt)
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	withBuild(t, "0.3.0", "a1b2c3d", "2026-10-01T12:00:00Z")

	info := Get()
	if info.Version != "0.3.0" || info.Commit != "a1b2c3d" || info.BuildTime != "2026-10-01T12:00:00Z" {
		t.Errorf("Get() = %+v", info)
	}
	if got := UserAgent(); got != "eva-client/0.3.0" {
		t.Errorf("UserAgent() = %q, want eva-client/0.3.0", got)
	}
}
