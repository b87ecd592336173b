package main

import "github.com/notargets/nedelec/cmd"

func main() {
	cmd.Execute()
}
