package main

import (
	"os"

	"github.com/taskmaster/taskboard/cmd/taskboard/commands"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(commands.Execute(version))
}
