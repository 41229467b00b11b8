package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mewmew/liftgo/lifter"
)

// loadOptions returns lifter.DefaultOptions(), overridden field-by-field by
// the YAML file at path if path is non-empty (spec §6's LifterOptions
// table, given a file home via this tool's optional `--options` flag).
func loadOptions(path string) (lifter.Options, error) {
	opts := lifter.DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrapf(err, "reading options file %q", path)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrapf(err, "parsing options file %q", path)
	}
	return opts, nil
}
