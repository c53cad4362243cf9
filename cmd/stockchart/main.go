package main

import "stockchart/internal/cli"

func main() {
	cli.Execute()
}
