package main

import "github.com/bornholm/burpacl/internal/command"

func main() {
	command.Execute()
}
