package main

import "github.com/mchmarny/craftplan/pkg/cli"

func main() {
	cli.Execute()
}
