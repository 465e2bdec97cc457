package main

import "github.com/buildtall-systems/petstock/internal/cli"

func main() {
	cli.Execute()
}
