package main

import (
	"github.com/procurelab/reqnotify/cmd"
)

func main() {
	cmd.Execute()
}
