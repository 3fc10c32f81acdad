package main

import "github.com/kris-hansen/docsquad/cmd"

func main() {
	cmd.Execute()
}
