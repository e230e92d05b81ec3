package main

import "github.com/atikulmunna/modusage/internal/cmd"

func main() {
	cmd.Execute()
}
