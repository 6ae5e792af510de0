package main

import (
	"github.com/admi-n/sc-security-research/src/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		cmd.PrintFatal(err)
	}
}
