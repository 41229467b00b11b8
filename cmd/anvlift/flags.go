package main

import "github.com/urfave/cli/v2"

var (
	specFlag = &cli.StringFlag{
		Name:     "spec",
		Usage:    "path to the JSON spec file, or - / /dev/stdin to read from standard input",
		Required: true,
	}
	irOutFlag = &cli.StringFlag{
		Name:  "ir_out",
		Usage: "path to write the lifted module as textual LLVM IR",
	}
	bcOutFlag = &cli.StringFlag{
		Name:  "bc_out",
		Usage: "path to write the lifted module to (written as textual LLVM IR; no bitcode encoder is available)",
	}
	archFlag = &cli.StringFlag{
		Name:  "arch",
		Usage: "fallback architecture (x86, amd64, sparc) when the spec omits one",
	}
	osFlag = &cli.StringFlag{
		Name:  "os",
		Usage: "fallback OS name when the spec omits one (accepted, but not used by the lifter)",
	}
	optionsFlag = &cli.StringFlag{
		Name:  "options",
		Usage: "path to a YAML file overriding LifterOptions defaults",
	}
)
