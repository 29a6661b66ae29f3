package version

import (
	"runtime/debug"
	"sync"
)

// Version can be set at build time:
// go build -ldflags "-X github.com/midiplayer/midiplayer/version.Version=$(git describe --dirty)"
var Version string

// Hash returns the short VCS revision the binary was built from, suffixed
// with -dirty for modified trees, or "" when it is unknown.
var Hash = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified == "true" {
		revision += "-dirty"
	}
	return revision
})

// String returns Version if set, else Hash, else "devel".
func String() string {
	if Version != "" {
		return Version
	}
	if h := Hash(); h != "" {
		return h
	}
	return "devel"
}
