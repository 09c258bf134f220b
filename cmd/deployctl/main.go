package main

import (
	"os"

	"dualserve/internal/deployctl"
)

func main() { os.Exit(deployctl.Main()) }
