package theme

import (
	"fmt"
)

// ANSI colors
const (
	red    = "\033[31m"
	cyan   = "\033[36m"
	yellow = "\033[33m"
	dim    = "\033[2m"
	reset  = "\033[0m"
)

// Banner returns the startup banner.
func Banner() string {
	art := "" +
		red + "  ▀▄▀ " + reset + cyan + "█▀█ █ █ █▀█ █▀▀ █▀▀\n" + reset +
		red + "  █ █ " + reset + cyan + "█▀▀ █▄█ █▀▄ █▄█ ██▄\n" + reset +
		yellow + "  ──────────────────────────\n" + reset +
		dim + "  bulk delete your posts on X\n" + reset
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}

// Warn colors a notice line for the terminal.
func Warn(s string) string { return yellow + s + reset }

// Fail colors an error line for the terminal.
func Fail(s string) string { return red + s + reset }
