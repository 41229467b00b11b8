// Package specfmt loads the JSON spec format (spec §6) into a
// program.Program, mirroring the parsing performed by the original
// decompile-json tool's ParseSpec family of functions.
package specfmt

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/mewpkg/jsonutil"
	"github.com/mewpkg/term"
	"github.com/pkg/errors"

	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/program"
	"github.com/mewmew/liftgo/typeprov"
)

var (
	dbg  = log.New(os.Stderr, term.MagentaBold("specfmt:")+" ", 0)
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// jsonValueDecl mirrors the ValueDecl-shaped JSON object: either a
// "register" string, or a "memory": {"register", "offset"} object, but not
// both.
type jsonValueDecl struct {
	Register string `json:"register,omitempty"`
	Memory   *struct {
		Register string `json:"register"`
		Offset   int64  `json:"offset"`
	} `json:"memory,omitempty"`
}

func (v *jsonValueDecl) decode(desc string) (typeprov.ValueDecl, error) {
	var decl typeprov.ValueDecl
	if v.Register != "" {
		decl.Register = v.Register
	}
	if v.Memory != nil {
		decl.IsMemory = true
		decl.MemRegister = v.Memory.Register
		decl.MemOffset = v.Memory.Offset
	}
	if err := decl.Validate(); err != nil {
		return typeprov.ValueDecl{}, errors.Wrapf(err, "invalid %s", desc)
	}
	return decl, nil
}

type jsonParameter struct {
	jsonValueDecl
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonTypedRegister struct {
	Address  uint64  `json:"address"`
	Register string  `json:"register"`
	Type     string  `json:"type"`
	Value    *uint64 `json:"value,omitempty"`
}

type jsonReturnStackPointer struct {
	Register string `json:"register"`
	Offset   int64  `json:"offset"`
}

type jsonFunction struct {
	Address            uint64                   `json:"address"`
	Name               string                   `json:"name,omitempty"`
	Parameters         []jsonParameter          `json:"parameters,omitempty"`
	ReturnValues       []jsonParameter          `json:"return_values,omitempty"`
	ReturnAddress      *jsonValueDecl           `json:"return_address"`
	ReturnStackPointer *jsonReturnStackPointer  `json:"return_stack_pointer,omitempty"`
	RegisterInfo       []jsonTypedRegister      `json:"register_info,omitempty"`
	IsNoReturn         bool                     `json:"is_noreturn,omitempty"`
	IsVariadic         bool                     `json:"is_variadic,omitempty"`
	CallingConvention  int                      `json:"calling_convention,omitempty"`
}

type jsonVariable struct {
	Address uint64 `json:"address"`
	Type    string `json:"type"`
}

type jsonMemoryRange struct {
	Address      uint64 `json:"address"`
	IsWriteable  bool   `json:"is_writeable,omitempty"`
	IsExecutable bool   `json:"is_executable,omitempty"`
	Data         string `json:"data"`
}

type jsonSpec struct {
	Arch                     string              `json:"arch,omitempty"`
	OS                       string               `json:"os,omitempty"`
	Functions                []jsonFunction       `json:"functions,omitempty"`
	Variables                []jsonVariable       `json:"variables,omitempty"`
	Memory                   []jsonMemoryRange    `json:"memory,omitempty"`
	Symbols                  [][2]interface{}     `json:"symbols,omitempty"`
	ControlFlowRedirections  [][2]uint64          `json:"control_flow_redirections,omitempty"`
}

// Spec is the decoded result of a spec file: the resolved Arch/OS fallback
// strings (possibly empty, in which case the caller's CLI flags apply) and
// the assembled Program.
type Spec struct {
	Arch    string
	OS      string
	Program *program.Program
}

// Load parses the JSON spec file at path. A missing or unparseable file is
// returned as an error, since the spec file is the CLI's mandatory input.
func Load(path string) (*Spec, error) {
	var raw jsonSpec
	if err := jsonutil.ParseFile(path, &raw); err != nil {
		return nil, errors.Wrapf(err, "unable to parse spec file %q", path)
	}
	return decode(&raw)
}

// LoadReader parses a JSON spec from r, for callers (the CLI's `--spec -`
// / `--spec /dev/stdin` convention) that read the spec from standard input
// rather than a named file.
func LoadReader(r io.Reader) (*Spec, error) {
	var raw jsonSpec
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "unable to parse spec from reader")
	}
	return decode(&raw)
}

func decode(raw *jsonSpec) (*Spec, error) {
	funcs := make([]typeprov.FunctionDecl, 0, len(raw.Functions))
	for _, jf := range raw.Functions {
		decl, err := decodeFunction(&jf)
		if err != nil {
			warn.Printf("skipping function at 0x%x: %v", jf.Address, err)
			continue
		}
		funcs = append(funcs, decl)
	}

	vars := make([]typeprov.GlobalVarDecl, 0, len(raw.Variables))
	for _, jv := range raw.Variables {
		typ, err := ParseType(jv.Type)
		if err != nil {
			warn.Printf("skipping variable at 0x%x: %v", jv.Address, err)
			continue
		}
		vars = append(vars, typeprov.GlobalVarDecl{Address: bin.Addr(jv.Address), Type: typ})
	}

	ranges := make([]bin.ByteRange, 0, len(raw.Memory))
	for _, jm := range raw.Memory {
		data, err := hex.DecodeString(jm.Data)
		if err != nil {
			warn.Printf("skipping memory range at 0x%x: malformed hex data: %v", jm.Address, err)
			continue
		}
		ranges = append(ranges, bin.ByteRange{
			Address:      bin.Addr(jm.Address),
			Bytes:        data,
			IsWritable:   jm.IsWriteable,
			IsExecutable: jm.IsExecutable,
		})
	}

	symbols := make([]program.NamedAddress, 0, len(raw.Symbols))
	for _, pair := range raw.Symbols {
		addr, name, ok := decodeNamedAddress(pair)
		if !ok {
			warn.Printf("skipping malformed symbols entry %v", pair)
			continue
		}
		symbols = append(symbols, program.NamedAddress{Address: addr, Name: name})
	}

	redirections := make([][2]bin.Addr, 0, len(raw.ControlFlowRedirections))
	for _, pair := range raw.ControlFlowRedirections {
		redirections = append(redirections, [2]bin.Addr{bin.Addr(pair[0]), bin.Addr(pair[1])})
	}
	dbg.Printf("loaded spec: %d functions, %d variables, %d memory ranges, %d symbols, %d redirections",
		len(funcs), len(vars), len(ranges), len(symbols), len(redirections))

	return &Spec{
		Arch:    raw.Arch,
		OS:      raw.OS,
		Program: program.New(funcs, vars, ranges, symbols, redirections),
	}, nil
}

func decodeNamedAddress(pair [2]interface{}) (bin.Addr, string, bool) {
	addr, ok := toUint64(pair[0])
	if !ok {
		return 0, "", false
	}
	name, ok := pair[1].(string)
	if !ok {
		return 0, "", false
	}
	return bin.Addr(addr), name, true
}

// toUint64 accommodates the fact that encoding/json decodes untyped numeric
// interface{} values as float64.
func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	default:
		return 0, false
	}
}

func decodeFunction(jf *jsonFunction) (typeprov.FunctionDecl, error) {
	if jf.ReturnAddress == nil {
		return typeprov.FunctionDecl{}, errors.New("missing return_address")
	}
	retAddr, err := jf.ReturnAddress.decode("return address")
	if err != nil {
		return typeprov.FunctionDecl{}, err
	}

	decl := typeprov.FunctionDecl{
		Address:       bin.Addr(jf.Address),
		Name:          jf.Name,
		ReturnAddress: retAddr,
		IsNoReturn:    jf.IsNoReturn,
		IsVariadic:    jf.IsVariadic,
		CallingConvention: jf.CallingConvention,
	}

	for i, jp := range jf.Parameters {
		p, err := decodeParameter(&jp)
		if err != nil {
			return typeprov.FunctionDecl{}, errors.Wrapf(err, "parameter %d", i)
		}
		decl.Params = append(decl.Params, p)
	}

	for i, jr := range jf.ReturnValues {
		v, err := jr.jsonValueDecl.decode("function return value")
		if err != nil {
			return typeprov.FunctionDecl{}, errors.Wrapf(err, "return value %d", i)
		}
		decl.Returns = append(decl.Returns, v)
	}

	for i, jh := range jf.RegisterInfo {
		h, err := decodeTypedRegister(&jh)
		if err != nil {
			return typeprov.FunctionDecl{}, errors.Wrapf(err, "register_info %d", i)
		}
		decl.RegisterInfo = append(decl.RegisterInfo, h)
	}

	if jf.ReturnStackPointer != nil {
		decl.ReturnStackPointerRegister = jf.ReturnStackPointer.Register
		decl.ReturnStackPointerOffset = jf.ReturnStackPointer.Offset
	} else {
		return typeprov.FunctionDecl{}, errors.New("missing return_stack_pointer")
	}

	return decl, nil
}

func decodeParameter(jp *jsonParameter) (typeprov.ParameterDecl, error) {
	typ, err := ParseType(jp.Type)
	if err != nil {
		return typeprov.ParameterDecl{}, err
	}
	v, err := jp.jsonValueDecl.decode("function parameter")
	if err != nil {
		return typeprov.ParameterDecl{}, err
	}
	return typeprov.ParameterDecl{ValueDecl: v, Name: jp.Name, Type: typ}, nil
}

func decodeTypedRegister(jh *jsonTypedRegister) (typeprov.TypedRegisterDecl, error) {
	typ, err := ParseType(jh.Type)
	if err != nil {
		return typeprov.TypedRegisterDecl{}, err
	}
	return typeprov.TypedRegisterDecl{
		InstAddr: bin.Addr(jh.Address),
		Register: jh.Register,
		Type:     typ,
		Value:    jh.Value,
	}, nil
}
