// Package compileinfo reports how a binary was built, from the module build
// info the Go toolchain embeds.
package compileinfo

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Version can be set at link time with
// -ldflags "-X github.com/carbocation/hmmdash/compileinfo.Version=v1.2.3".
var Version = "devel"

type CompileInfo struct {
	Version    string `json:"version"`
	Package    string `json:"package"`
	GoVersion  string `json:"go_version"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	commit := "an unknown commit"
	if c.Commit != "" {
		commit = fmt.Sprintf("commit %s at time %s", c.Commit, c.CommitTime)
	}

	return fmt.Sprintf("This %s binary (version %s) was built with %s from %s.%s", c.Package, c.Version, c.GoVersion, commit, mod)
}

// Get reads the embedded build info. Outside a module build only Version is
// set.
func Get() CompileInfo {
	out := CompileInfo{Version: Version}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	return fromBuildInfo(out, z)
}

func fromBuildInfo(out CompileInfo, z *debug.BuildInfo) CompileInfo {
	out.GoVersion = z.GoVersion
	out.Package = z.Path
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintf(os.Stderr, "%s\n", Get())
}
