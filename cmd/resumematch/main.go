package main

import "resumematch/internal/cli"

func main() {
	cli.Execute()
}
