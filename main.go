package main

import "github.com/dayuer/tgpilot/cmd"

func main() {
	cmd.Execute()
}
