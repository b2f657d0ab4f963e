package main

import "taxkb/cmd/kbctl/cmd"

func main() {
	cmd.Execute()
}
