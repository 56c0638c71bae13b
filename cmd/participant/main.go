package main

import "github.com/dkeye/Interview/internal/cli"

func main() {
	cli.Execute()
}
