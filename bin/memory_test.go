package bin

import "testing"

import "github.com/stretchr/testify/require"

func TestRangeMemoryProviderQuery(t *testing.T) {
	p := NewRangeMemoryProvider([]ByteRange{
		{Address: 0x1000, Bytes: []byte{0x90, 0x90}, IsExecutable: true},
		{Address: 0x2000, Bytes: []byte{0x01, 0x02}, IsWritable: true},
	})

	b, avail, perm := p.Query(0x1000)
	require.Equal(t, byte(0x90), b)
	require.Equal(t, AvailabilityAvailable, avail)
	require.Equal(t, PermissionReadableExecutable, perm)
	require.True(t, IsValidAddress(avail))
	require.True(t, IsExecutable(perm))

	_, avail, _ = p.Query(0x1002)
	require.Equal(t, AvailabilityUnavailable, avail)
	require.False(t, IsValidAddress(avail))

	b, avail, perm = p.Query(0x2001)
	require.Equal(t, byte(0x02), b)
	require.Equal(t, AvailabilityAvailable, avail)
	require.Equal(t, PermissionReadableWritable, perm)
	require.False(t, IsExecutable(perm))
}

func TestAddrString(t *testing.T) {
	require.Equal(t, "0x1000", Addr(0x1000).String())
}
