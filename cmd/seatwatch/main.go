package main

import "seatwatch/internal/cli"

func main() {
	cli.Execute()
}
