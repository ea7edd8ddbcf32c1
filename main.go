package main

import "github.com/kozaktomas/attendease/cmd"

func main() {
	cmd.Execute()
}
