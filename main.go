package main

import "torrentmeta/internal/cmd"

func main() {
	cmd.Execute()
}
