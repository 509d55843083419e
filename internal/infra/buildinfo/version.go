package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	embedded     Info
	embeddedOnce sync.Once
)

// readEmbedded collects what the toolchain recorded in the binary.
func readEmbedded() Info {
	embeddedOnce.Do(func() {
		embedded.GoVersion = runtime.Version()
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			embedded.Version = v
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				embedded.Commit = s.Value
			case "vcs.time":
				embedded.BuildTime = s.Value
			case "vcs.modified":
				embedded.Modified = s.Value == "true"
			}
		}
	})
	return embedded
}

// Get returns the build information. Injected values win over embedded ones.
func Get() Info {
	e := readEmbedded()
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: e.GoVersion,
		Modified:  e.Modified,
	}
	if info.Version == "dev" && e.Version != "" {
		info.Version = e.Version
	}
	if info.Commit == "unknown" && e.Commit != "" {
		info.Commit = e.Commit
	}
	if info.BuildTime == "unknown" && e.BuildTime != "" {
		info.BuildTime = e.BuildTime
	}
	return info
}

// String returns a formatted version string.
func String() string {
	return Get().String()
}

// String formats the info as "version (commit) built at time".
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Modified {
		commit += "+dirty"
	}
	return i.Version + " (" + commit + ") built at " + i.BuildTime
}

// UserAgent returns the User-Agent sent to the backend.
func UserAgent() string {
	return "regdesk-cli/" + Get().Version
}
