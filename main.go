package main

import "songsmith/cmd"

func main() {
	cmd.Execute()
}
