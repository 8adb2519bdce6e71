package main

import (
	"os"

	"github.com/bremen-jose-oliveira/mylibrary/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.Options{Version: Version, Commit: Commit}, os.Args[1:]))
}
