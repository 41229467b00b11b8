// The anvlift tool lifts the machine-code functions named in a JSON spec
// file into a single LLVM IR module, relying entirely on the spec's
// declarations, memory ranges, and redirection table rather than on any
// binary-container parsing of its own (spec §6).
package main

import (
	"log"
	"os"

	"github.com/mewpkg/term"
	"github.com/urfave/cli/v2"
)

var (
	// dbg is a logger which logs debug messages with "anvlift:" prefix to
	// standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("anvlift:")+" ", 0)
	// warn is a logger which logs warning messages with "warning:" prefix
	// to standard error.
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

func main() {
	app := &cli.App{
		Name:  "anvlift",
		Usage: "lift machine-code functions described by a JSON spec into LLVM IR",
		Flags: []cli.Flag{specFlag, irOutFlag, bcOutFlag, archFlag, osFlag, optionsFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		warn.Printf("%+v", err)
		os.Exit(1)
	}
}
