package main

import "vidflow/cmd"

func main() {
	cmd.Execute()
}
