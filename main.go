package main

import "github.com/mselser95/polymarket-fleet/cmd"

func main() {
	cmd.Execute()
}
