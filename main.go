package main

import "github.com/plumekit/plume/cmd"

func main() {
	cmd.Execute()
}
