package main

import "github.com/atikulmunna/fwloom/internal/cmd"

func main() {
	cmd.Execute()
}
