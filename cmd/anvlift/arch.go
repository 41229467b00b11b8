package main

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/arch/sparc"
	"github.com/mewmew/liftgo/arch/x86"
	"github.com/mewmew/liftgo/instsem"
)

// resolveArch maps a spec/CLI architecture name onto the concrete
// arch.Arch and instruction semantic lifter pair anvlift knows how to
// drive. Unknown names are a hard error (spec §6: "nonzero if ... the
// architecture is unknown").
func resolveArch(name string) (arch.Arch, instsem.Lifter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x86_64", "x86-64", "amd64", "x64":
		return x86.New64(), instsem.NewX86Lifter(64), nil
	case "x86", "x86_32", "x86-32", "i386", "ia32":
		return x86.New32(), instsem.NewX86Lifter(32), nil
	case "sparc":
		// No SPARC instruction semantic lifter has been written (the
		// teacher's x86-only retrieval pack gives instsem no grounding for
		// a second architecture); decoding and CFG construction still run,
		// instructions just aren't given IR semantics.
		return sparc.New(), instsem.NoOpLifter{}, nil
	case "":
		return nil, nil, errors.New("no architecture given (spec omits \"arch\" and --arch was not set)")
	default:
		return nil, nil, errors.Errorf("unknown architecture %q", name)
	}
}
