package main

import "github.com/christophercampbell/skunkr/cmd"

func main() {
	cmd.Execute()
}
