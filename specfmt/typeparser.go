package specfmt

import (
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
)

// ParseType parses a high-level type string from the spec's `type` fields
// (parameter, return value, global variable, typed-register-hint) into an
// IR type. The grammar mirrors llir/llvm's own canonical type syntax, since
// that is the one vocabulary every consumer downstream of this lifter
// already speaks:
//
//	type   := "void" | int | float | "double" | ptr | array | struct
//	int    := "i" digits
//	ptr    := type "*"
//	array  := "[" digits "x" type "]"
//	struct := "{" [ type ("," type)* ] "}"
//
// This lifter treats the string opaquely beyond parsing it into a type; it
// never inspects high-level type semantics itself (spec §6).
func ParseType(s string) (types.Type, error) {
	p := &typeParser{s: s}
	p.skipSpace()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, errors.Errorf("unexpected trailing input %q in type string %q", p.s[p.pos:], s)
	}
	return t, nil
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) parseType() (types.Type, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos < len(p.s) && p.s[p.pos] == '*' {
			p.pos++
			base = types.NewPointer(base)
			continue
		}
		break
	}
	return base, nil
}

func (p *typeParser) parseBaseType() (types.Type, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, errors.Errorf("unexpected end of type string %q", p.s)
	}
	switch {
	case p.s[p.pos] == '[':
		return p.parseArrayType()
	case p.s[p.pos] == '{':
		return p.parseStructType()
	case strings.HasPrefix(p.s[p.pos:], "void"):
		p.pos += len("void")
		return types.Void, nil
	case strings.HasPrefix(p.s[p.pos:], "double"):
		p.pos += len("double")
		return types.Double, nil
	case strings.HasPrefix(p.s[p.pos:], "float"):
		p.pos += len("float")
		return types.Float, nil
	case p.s[p.pos] == 'i':
		return p.parseIntType()
	default:
		return nil, errors.Errorf("unrecognized type token at %q", p.s[p.pos:])
	}
}

func (p *typeParser) parseIntType() (types.Type, error) {
	start := p.pos
	p.pos++ // 'i'
	digitsStart := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == digitsStart {
		return nil, errors.Errorf("malformed integer type %q", p.s[start:p.pos])
	}
	bits, err := strconv.Atoi(p.s[digitsStart:p.pos])
	if err != nil {
		return nil, errors.Wrapf(err, "malformed integer type %q", p.s[start:p.pos])
	}
	return types.NewInt(uint64(bits)), nil
}

func (p *typeParser) parseArrayType() (types.Type, error) {
	p.pos++ // '['
	p.skipSpace()
	digitsStart := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == digitsStart {
		return nil, errors.Errorf("malformed array length in type string %q", p.s)
	}
	length, err := strconv.ParseUint(p.s[digitsStart:p.pos], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed array length in type string %q", p.s)
	}
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != 'x' {
		return nil, errors.Errorf("expected 'x' in array type string %q", p.s)
	}
	p.pos++ // 'x'
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != ']' {
		return nil, errors.Errorf("expected ']' closing array type string %q", p.s)
	}
	p.pos++ // ']'
	return types.NewArray(length, elem), nil
}

func (p *typeParser) parseStructType() (types.Type, error) {
	p.pos++ // '{'
	var fields []types.Type
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return types.NewStruct(fields...), nil
	}
	for {
		field, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, errors.Errorf("unterminated struct type string %q", p.s)
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return types.NewStruct(fields...), nil
		}
		return nil, errors.Errorf("expected ',' or '}' in struct type string %q", p.s)
	}
}
