package main

import "redundancy-analyzer/src/handler/cli"

func main() {
	cli.Run()
}
