package main

import "mhrs-tracker/cmd/mhrs-tracker/commands"

func main() {
	commands.Execute()
}
