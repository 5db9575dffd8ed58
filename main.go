package main

import (
	"context"
	"os"

	"github.com/dmorgan81/sdxlgen/cmd"
)

func main() {
	if err := cmd.NewCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
