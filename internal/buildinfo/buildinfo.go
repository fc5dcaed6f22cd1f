package buildinfo

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

// Dump writes the version and VCS info baked into the binary.
func Dump(w io.Writer) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("no build info embedded in binary")
	}

	fmt.Fprintf(w, "version: %s\n", info.Main.Version)
	fmt.Fprintf(w, "go: %s (%s/%s)\n", info.GoVersion, runtime.GOOS, runtime.GOARCH)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision", "vcs.time", "vcs.modified":
			fmt.Fprintf(w, "%s: %s\n", s.Key, s.Value)
		}
	}
	return nil
}
