package theme

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	purple = color.New(color.FgMagenta).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()

	// Good and Bad color status lines printed by the CLI.
	Good = color.New(color.FgGreen).SprintFunc()
	Bad  = color.New(color.FgRed).SprintFunc()
)

// Banner returns the CLI banner. Colors are dropped when stdout is not a terminal.
func Banner() string {
	art := "" +
		red("   ▓█████ ██▒   █▓ ██▓ ██▓    ") + "\n" +
		red("   ▓█   ▀▓██░   █▒▓██▒▓██▒    ") + "\n" +
		red("   ▒███   ▓██  █▒░▒██▒▒██░    ") + "\n" +
		purple("   ▒▓█  ▄  ▒██ █░░░██░▒██░     t w i t t e r") + "\n" +
		dim("   where posts fight back") + "\n"
	return art
}

// FprintBanner writes the banner to w.
func FprintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	FprintBanner(os.Stdout)
}
