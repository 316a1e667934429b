package main

import "github.com/tracekit/kicadsch/cmd/kicadsch/cmd"

func main() {
	cmd.Execute()
}
