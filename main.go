package main

import "github.com/stackpad/stackpad/cmd"

func main() {
	cmd.Execute()
}
