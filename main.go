package main

import "github.com/kiesman99/tilepack/cmd"

func main() {
	cmd.Execute()
}
