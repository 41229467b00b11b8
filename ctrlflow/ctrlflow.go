// Package ctrlflow implements the control-flow provider: a caller-supplied
// address redirection table used to resolve thunks and patch overrides
// before the lifter performs target resolution (spec §4.3).
package ctrlflow

import "github.com/mewmew/liftgo/bin"

// Provider maps a source address to a possibly-different effective target.
// GetRedirection must be idempotent:
// GetRedirection(GetRedirection(a)) == GetRedirection(a). The identity is
// the default for any address with no explicit redirection.
type Provider interface {
	GetRedirection(addr bin.Addr) bin.Addr
}

// MapProvider implements Provider from an explicit address-to-address
// table, as supplied by the spec's `control_flow_redirections` entries.
type MapProvider struct {
	redirects map[bin.Addr]bin.Addr
}

// NewMapProvider builds a MapProvider from the given (from, to) pairs. Pairs
// are resolved transitively at construction time so that GetRedirection
// always terminates in a single map lookup and satisfies the idempotence
// invariant even when the input pairs chain (a->b->c).
func NewMapProvider(pairs [][2]bin.Addr) *MapProvider {
	raw := make(map[bin.Addr]bin.Addr, len(pairs))
	for _, pair := range pairs {
		raw[pair[0]] = pair[1]
	}
	resolved := make(map[bin.Addr]bin.Addr, len(raw))
	for from := range raw {
		resolved[from] = resolve(raw, from)
	}
	return &MapProvider{redirects: resolved}
}

// resolve follows the redirection chain starting at from until it reaches a
// fixed point, guarding against cycles by stopping at the first address it
// has already visited.
func resolve(raw map[bin.Addr]bin.Addr, from bin.Addr) bin.Addr {
	seen := make(map[bin.Addr]bool, len(raw))
	cur := from
	for {
		next, ok := raw[cur]
		if !ok || next == cur || seen[cur] {
			return cur
		}
		seen[cur] = true
		cur = next
	}
}

// GetRedirection implements Provider.
func (p *MapProvider) GetRedirection(addr bin.Addr) bin.Addr {
	if to, ok := p.redirects[addr]; ok {
		return to
	}
	return addr
}

// IdentityProvider is the default Provider: every address redirects to
// itself.
type IdentityProvider struct{}

// GetRedirection implements Provider.
func (IdentityProvider) GetRedirection(addr bin.Addr) bin.Addr { return addr }
