package main

import "github.com/scribelabs/scribe/cmd"

func main() {
	cmd.Execute()
}
