package main

import "github.com/JustJay7/ecourts-fetcher/cmd/ecourts/commands"

func main() {
	commands.Execute()
}
