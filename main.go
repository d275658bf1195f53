package main

import "github.com/dyike/CortexQuant/internal/cli"

func main() {
	cli.Run()
}
