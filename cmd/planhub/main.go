package main

import "github.com/goblinsan/planhub/cmd/planhub/commands"

func main() {
	commands.Execute()
}
