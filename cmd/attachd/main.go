// attachd - signed-request attachment store sidecar and CLI.
package main

import (
	"os"

	"github.com/fincontrol/attachd/internal/cli"
	"github.com/fincontrol/attachd/internal/version"
)

// Version information, overridden by ldflags in release builds.
var (
	Version   = "v1.0.0"
	BuildTime = "2026-08-30"
)

func main() {
	// Propagate to the version package; the CLI help/version strings
	// read from there.
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
