package main

import "scriptpack/cmd"

func main() {
	cmd.Execute()
}
