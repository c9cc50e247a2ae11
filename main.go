package main

import "github.com/jamesmurdza/repo-health-check/cmd"

func main() {
	cmd.Execute()
}
