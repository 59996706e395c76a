package main

import "github.com/antikythera/planner/cmd"

func main() {
	cmd.Execute()
}
