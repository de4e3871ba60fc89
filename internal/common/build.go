package common

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

var (
	// Git SHA commit (only first few characters)
	BuildCommit = "HEAD"

	// Build date and time
	BuildTime = "N/A"

	// BuildGoVersion carries Go version the binary was built with
	BuildGoVersion string
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	BuildGoVersion = bi.GoVersion
	for _, bs := range bi.Settings {
		switch bs.Key {
		case "vcs.revision":
			if len(bs.Value) > 6 {
				BuildCommit = bs.Value[0:6]
			}
		case "vcs.time":
			BuildTime = bs.Value
		}
	}
}

// BuildHook tags every log entry with the commit and time the binary was
// built from.
type BuildHook struct{}

func (h *BuildHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *BuildHook) Fire(e *logrus.Entry) error {
	e.Data["build_commit"] = BuildCommit
	e.Data["build_time"] = BuildTime

	return nil
}
