package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/mewmew/liftgo/specfmt"
)

// loadSpec reads the JSON spec from path, accepting the "-" and
// "/dev/stdin" conventions for reading from standard input instead of a
// named file (spec §6: `--spec <path|-|/dev/stdin>`).
func loadSpec(path string) (*specfmt.Spec, error) {
	if path == "-" || path == "/dev/stdin" {
		spec, err := specfmt.LoadReader(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "reading spec from standard input")
		}
		return spec, nil
	}
	spec, err := specfmt.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading spec file %q", path)
	}
	return spec, nil
}
