package main

import (
	"fmt"
	"os"

	"xpurge/internal/cli"
	"xpurge/internal/theme"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail("error: "+err.Error()))
		os.Exit(1)
	}
}
