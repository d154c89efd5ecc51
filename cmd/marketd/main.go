package main

import "github.com/lpando/marketd/internal/cli"

func main() {
	cli.Execute()
}
