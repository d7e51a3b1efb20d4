package main

import (
	"os"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
