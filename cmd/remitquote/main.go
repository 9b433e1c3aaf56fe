package main

import (
	"os"

	"github.com/wonny/remitquote/cmd/remitquote/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCodeFor(err))
	}
}
