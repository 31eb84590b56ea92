package main

import "github.com/thuhak/pbs-cache/pkg/cli"

func main() {
	cli.Execute()
}
