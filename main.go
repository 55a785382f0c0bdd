package main

import (
	"github.com/rlcone/ptm/cmd"
)

func main() {
	cmd.Execute()
}
