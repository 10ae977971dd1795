// Package version reports build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X bankchat/pkg/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Summary is the short form used in health responses: the version plus the
// abbreviated commit when one is known.
func Summary() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit != "" && Commit != "none" {
		short := Commit
		if len(short) > 7 {
			short = short[:7]
		}
		return fmt.Sprintf("%s (%s)", v, short)
	}
	return v
}

// Info is the multi-line text printed by --version.
func Info(binary string) string {
	return fmt.Sprintf("%s version %s\n  commit: %s\n  built: %s\n  go: %s\n  platform: %s",
		binary, Summary(), Commit, Date, GoVersion, Platform())
}
