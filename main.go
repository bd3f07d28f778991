package main

import "github.com/specmint/specmint-cli/cmd"

func main() {
	cmd.Execute()
}
