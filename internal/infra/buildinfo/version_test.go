package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("Get() = %+v, want every field populated", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestGet_InjectedWins(t *testing.T) {
	oldV, oldC, oldB := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldV, oldC, oldB })

	Version, Commit, BuildTime = "v1.2.0", "abc123", "2026-01-05T10:00:00Z"
	info := Get()
	if info.Version != "v1.2.0" || info.Commit != "abc123" || info.BuildTime != "2026-01-05T10:00:00Z" {
		t.Errorf("Get() = %+v", info)
	}
}

func TestInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "short commit",
			info: Info{Version: "v1.0.0", Commit: "abc123", BuildTime: "today"},
			want: "v1.0.0 (abc123) built at today",
		},
		{
			name: "long commit truncated",
			info: Info{Version: "dev", Commit: "0123456789abcdef0123", BuildTime: "unknown"},
			want: "dev (0123456789ab) built at unknown",
		},
		{
			name: "dirty tree",
			info: Info{Version: "dev", Commit: "abc", BuildTime: "unknown", Modified: true},
			want: "dev (abc+dirty) built at unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	if ua := UserAgent(); !strings.HasPrefix(ua, "regdesk-cli/") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
