package main

import "github.com/tinixos/tinix/cmd"

func main() {
	cmd.Execute()
}
