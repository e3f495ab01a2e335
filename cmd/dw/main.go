package main

import "github.com/strrl/dw/cmd/dw/commands"

func main() {
	commands.Execute()
}
