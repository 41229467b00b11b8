package bin

// ByteAvailability reports whether a byte query landed inside mapped memory.
type ByteAvailability int

const (
	// AvailabilityUnknown means no range was consulted that could answer the
	// query one way or another.
	AvailabilityUnknown ByteAvailability = iota
	// AvailabilityUnavailable means the address is known not to be backed by
	// any byte.
	AvailabilityUnavailable
	// AvailabilityAvailable means a concrete byte value is present.
	AvailabilityAvailable
)

// BytePermission reports the access permissions of a queried byte.
type BytePermission int

const (
	// PermissionUnknown means the permissions of the queried address are not
	// known.
	PermissionUnknown BytePermission = iota
	// PermissionReadable means the byte may be read but not written or
	// executed.
	PermissionReadable
	// PermissionReadableWritable means the byte may be read and written, but
	// not executed.
	PermissionReadableWritable
	// PermissionReadableExecutable means the byte may be read and executed,
	// but not written.
	PermissionReadableExecutable
	// PermissionReadableWritableExecutable means the byte may be read,
	// written and executed.
	PermissionReadableWritableExecutable
)

// ByteRange is a contiguous run of bytes backing part of a binary, as
// supplied by the spec's `memory` entries.
type ByteRange struct {
	// Address is the virtual address of the first byte in Bytes.
	Address Addr
	// Bytes holds the byte range's contents.
	Bytes []byte
	// IsWritable reports whether the range may be written to.
	IsWritable bool
	// IsExecutable reports whether the range may be executed as code.
	IsExecutable bool
}

// Contains reports whether addr falls within the byte range.
func (r *ByteRange) Contains(addr Addr) bool {
	return r.Address <= addr && uint64(addr-r.Address) < uint64(len(r.Bytes))
}

// ByteAt returns the byte stored at addr. The caller must have already
// confirmed addr is contained in the range via Contains.
func (r *ByteRange) ByteAt(addr Addr) byte {
	return r.Bytes[uint64(addr-r.Address)]
}

// Permission derives the BytePermission implied by the range's flags. All
// mapped memory is treated as readable; IsWritable and IsExecutable refine
// that further, matching the spec's is_writeable/is_executable JSON fields.
func (r *ByteRange) Permission() BytePermission {
	switch {
	case r.IsWritable && r.IsExecutable:
		return PermissionReadableWritableExecutable
	case r.IsExecutable:
		return PermissionReadableExecutable
	case r.IsWritable:
		return PermissionReadableWritable
	default:
		return PermissionReadable
	}
}

// MemoryProvider is a byte-level oracle: given an address, it returns the
// byte stored there (if any), whether that byte is available, and its
// access permissions. Implementations must be pure and safe to call with
// arbitrary addresses.
type MemoryProvider interface {
	Query(addr Addr) (value byte, availability ByteAvailability, perm BytePermission)
}

// IsValidAddress reports whether avail indicates that the address itself
// refers to mapped memory. Only AvailabilityAvailable qualifies, so with
// the availability states defined here this is the same test as HasByte.
func IsValidAddress(avail ByteAvailability) bool {
	return avail == AvailabilityAvailable
}

// IsExecutable reports whether perm permits execution.
func IsExecutable(perm BytePermission) bool {
	switch perm {
	case PermissionReadableExecutable, PermissionReadableWritableExecutable, PermissionUnknown:
		return true
	default:
		return false
	}
}

// HasByte reports whether avail indicates a concrete byte value is present.
func HasByte(avail ByteAvailability) bool {
	return avail == AvailabilityAvailable
}
