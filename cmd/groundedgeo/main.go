// cmd/groundedgeo/main.go
package main

import (
	groundedgeo "github.com/mwiater/groundedgeo/internal/commands"
)

// Build metadata, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	setVersionInfo = groundedgeo.SetVersionInfo
	executeCmd     = groundedgeo.Execute
)

// main starts the groundedgeo CLI by delegating to the cobra root command.
func main() {
	setVersionInfo(version, commit, date)
	executeCmd()
}
