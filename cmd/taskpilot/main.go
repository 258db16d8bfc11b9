package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/voluzi/taskpilot/cmd/taskpilot/cmd"
)

func main() {
	cmd.Execute()
}
