package ctrlflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/bin"
)

func TestMapProviderIdentityByDefault(t *testing.T) {
	p := NewMapProvider(nil)
	require.Equal(t, bin.Addr(0x1000), p.GetRedirection(0x1000))
}

func TestMapProviderRedirects(t *testing.T) {
	p := NewMapProvider([][2]bin.Addr{{0x1000, 0x2000}})
	require.Equal(t, bin.Addr(0x2000), p.GetRedirection(0x1000))
	require.Equal(t, bin.Addr(0x3000), p.GetRedirection(0x3000))
}

func TestMapProviderIsIdempotentAcrossChains(t *testing.T) {
	p := NewMapProvider([][2]bin.Addr{
		{0x1000, 0x2000},
		{0x2000, 0x3000},
	})
	to := p.GetRedirection(0x1000)
	require.Equal(t, bin.Addr(0x3000), to)
	require.Equal(t, to, p.GetRedirection(to))
}

func TestMapProviderBreaksCycles(t *testing.T) {
	p := NewMapProvider([][2]bin.Addr{
		{0x1000, 0x2000},
		{0x2000, 0x1000},
	})
	// Must terminate and be stable; the exact fixed point is unspecified for
	// a cycle, but applying it twice must agree.
	to := p.GetRedirection(0x1000)
	require.Equal(t, to, p.GetRedirection(to))
}

func TestIdentityProvider(t *testing.T) {
	var p Provider = IdentityProvider{}
	require.Equal(t, bin.Addr(0x42), p.GetRedirection(0x42))
}
