package bin

import "sort"

// RangeMemoryProvider answers byte queries from an explicit set of
// ByteRanges, as supplied by a spec's `memory` array. It implements
// MemoryProvider.
type RangeMemoryProvider struct {
	ranges Addrs
	byAddr map[Addr]*ByteRange
}

// NewRangeMemoryProvider builds a RangeMemoryProvider from the given ranges.
// Ranges are not required to be sorted or non-overlapping on input, though a
// well-formed spec will not overlap them.
func NewRangeMemoryProvider(ranges []ByteRange) *RangeMemoryProvider {
	p := &RangeMemoryProvider{
		byAddr: make(map[Addr]*ByteRange, len(ranges)),
	}
	for i := range ranges {
		r := &ranges[i]
		p.byAddr[r.Address] = r
		p.ranges = append(p.ranges, r.Address)
	}
	sort.Sort(p.ranges)
	return p
}

// Query implements MemoryProvider.
func (p *RangeMemoryProvider) Query(addr Addr) (byte, ByteAvailability, BytePermission) {
	r := p.rangeContaining(addr)
	if r == nil {
		return 0, AvailabilityUnavailable, PermissionUnknown
	}
	return r.ByteAt(addr), AvailabilityAvailable, r.Permission()
}

// rangeContaining returns the byte range that contains addr, or nil.
func (p *RangeMemoryProvider) rangeContaining(addr Addr) *ByteRange {
	// Binary search for the last range starting at or before addr.
	i := sort.Search(len(p.ranges), func(i int) bool { return p.ranges[i] > addr })
	if i == 0 {
		return nil
	}
	r := p.byAddr[p.ranges[i-1]]
	if r.Contains(addr) {
		return r
	}
	return nil
}
