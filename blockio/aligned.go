// Package blockio provides the I/O primitives needed to move whole tracks to
// and from raw devices opened with O_DIRECT: page-aligned buffers, and reads
// and writes that keep going until every byte has been transferred.
package blockio

import (
	"fmt"
	"unsafe"

	"github.com/dargueta/cikada"
	"golang.org/x/sys/unix"
)

// DefaultAlignment is the buffer alignment required for direct I/O on the
// devices this package is meant for.
const DefaultAlignment = 4096

// AlignedBuffer is a buffer whose first byte is guaranteed to be aligned to a
// given boundary. It's backed by an anonymous memory mapping rather than the Go
// heap, so it must be released with [AlignedBuffer.Free].
type AlignedBuffer struct {
	// Bytes is the usable, aligned part of the buffer.
	Bytes     []byte
	alignment int
	mapping   []byte
}

// AllocateAligned allocates a zeroed buffer of `size` bytes whose address is a
// multiple of `alignment`, which must be a power of two.
func AllocateAligned(size, alignment int) (*AlignedBuffer, error) {
	if size <= 0 {
		return nil, cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("buffer size must be positive, got %d", size))
	}
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("alignment must be a power of two, got %d", alignment))
	}

	// Mappings always start on a page boundary. If that's not enough, map
	// extra space so we can skip ahead to the next aligned address.
	mappingSize := size
	if alignment > unix.Getpagesize() {
		mappingSize += alignment
	}

	mapping, err := unix.Mmap(
		-1,
		0,
		mappingSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, cikada.ErrAllocationFailed.Wrap(err).WithMessage(
			fmt.Sprintf("%d bytes aligned to %d", size, alignment))
	}

	skip := 0
	if remainder := int(addressOf(mapping) % uintptr(alignment)); remainder != 0 {
		skip = alignment - remainder
	}

	buffer := &AlignedBuffer{
		Bytes:     mapping[skip : skip+size : skip+size],
		alignment: alignment,
		mapping:   mapping,
	}

	err = buffer.CheckAlignment()
	if err != nil {
		unix.Munmap(mapping)
		return nil, err
	}
	return buffer, nil
}

func addressOf(buffer []byte) uintptr {
	return uintptr(unsafe.Pointer(&buffer[0]))
}

// IsAligned returns true if the first byte of `buffer` is at an address that's
// a multiple of `alignment`. Empty buffers are never aligned.
func IsAligned(buffer []byte, alignment int) bool {
	if len(buffer) == 0 || alignment <= 0 {
		return false
	}
	return addressOf(buffer)%uintptr(alignment) == 0
}

// CheckAlignment verifies the buffer is still aligned, and fails with
// [cikada.ErrMisaligned] if not.
func (buffer *AlignedBuffer) CheckAlignment() error {
	if !IsAligned(buffer.Bytes, buffer.alignment) {
		return cikada.ErrMisaligned.WithMessage(
			fmt.Sprintf(
				"buffer at %#x is not aligned to %d bytes",
				addressOf(buffer.Bytes),
				buffer.alignment,
			),
		)
	}
	return nil
}

// Alignment gives the boundary the buffer was allocated on.
func (buffer *AlignedBuffer) Alignment() int {
	return buffer.alignment
}

// Free releases the buffer. It must not be used afterwards. Calling Free more
// than once is harmless.
func (buffer *AlignedBuffer) Free() error {
	if buffer.mapping == nil {
		return nil
	}

	err := unix.Munmap(buffer.mapping)
	buffer.mapping = nil
	buffer.Bytes = nil
	if err != nil {
		return cikada.ErrIOFailed.Wrap(err).WithMessage("failed to release aligned buffer")
	}
	return nil
}
