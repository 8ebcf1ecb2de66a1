package main

import "github.com/strrl/hkanno-tui/cmd/hkanno-tui/commands"

func main() {
	commands.Execute()
}
