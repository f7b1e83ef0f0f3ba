package tarbuilder

import (
	"io"

	"golang.org/x/xerrors"
)

// BlockSize is B, the fixed tar block size in bytes.
const BlockSize = 512

// DefaultBlockFactor is the classic tar record size expressed as a
// multiple of BlockSize: factor 1 gives the traditional 10 KiB record
// (20 blocks), matching b_buffer.c's B_BUFFER_DEFAULT_FACTOR.
const DefaultBlockFactor = 1

const blocksPerFactor = 20

// Buffer is the block-aligned staging area between the header encoder /
// file streamer and the sink. It only ever writes whole multiples of
// BlockSize to the sink, so the encoder can never produce a partial
// record and a short read just reclaims its unused tail.
type Buffer struct {
	data   []byte
	unused int
	sink   io.Writer
	isPipe bool
}

// NewBuffer allocates a zero-filled buffer of factor*20*BlockSize bytes.
// A non-positive factor is treated as DefaultBlockFactor.
func NewBuffer(factor int) *Buffer {
	if factor <= 0 {
		factor = DefaultBlockFactor
	}
	size := factor * blocksPerFactor * BlockSize
	return &Buffer{
		data:   make([]byte, size),
		unused: size,
	}
}

// SetSink associates the sink the buffer flushes to. The sink is
// borrowed, never closed by Buffer.
func (b *Buffer) SetSink(w io.Writer) {
	b.sink = w
}

// SetPipe marks whether the sink is a pipe, which the file streamer
// consults to decide whether the splice fast path applies.
func (b *Buffer) SetPipe(isPipe bool) {
	b.isPipe = isPipe
}

// IsPipe reports whether the sink was marked as a pipe.
func (b *Buffer) IsPipe() bool {
	return b.isPipe
}

// Size returns the buffer's total capacity in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Unused returns the number of currently-unused trailing bytes.
func (b *Buffer) Unused() int {
	return b.unused
}

// Full reports whether the buffer has no remaining unused space.
func (b *Buffer) Full() bool {
	return b.unused == 0
}

func padded(n int) int {
	if n%BlockSize == 0 {
		return n
	}
	return n + (BlockSize - n%BlockSize)
}

// GetBlock reserves a writable, pre-zeroed window of padded(len) bytes
// and returns it along with how many bytes were given. If the buffer is
// full it is flushed first to make room. It fails with ErrInvalidArgument
// if len is zero, ErrNoSink if no sink has been set, or ErrTooBig if the
// padded length still exceeds the unused space after flushing.
func (b *Buffer) GetBlock(n int) ([]byte, int, error) {
	if n == 0 {
		return nil, 0, ErrInvalidArgument
	}
	if b.sink == nil {
		return nil, 0, ErrNoSink
	}

	if b.Full() {
		if _, err := b.Flush(); err != nil {
			return nil, 0, err
		}
	}

	padlen := padded(n)
	if padlen > b.unused {
		return nil, 0, ErrTooBig
	}

	offset := len(b.data) - b.unused
	b.unused -= padlen

	return b.data[offset : offset+padlen], padlen, nil
}

// Reclaim returns the unused tail of a block reserved via GetBlock after
// a short read consumed fewer than given bytes. given must be a multiple
// of BlockSize; it returns the number of bytes returned to the buffer.
func (b *Buffer) Reclaim(used, given int) (int, error) {
	if given == 0 || given%BlockSize != 0 {
		return 0, ErrInvalidArgument
	}

	delta := given - padded(used)
	b.unused += delta

	return delta, nil
}

// Flush writes the entire buffer — size bytes, padding included — to the
// sink, retrying short writes, then re-zeroes it. It is a no-op if the buffer has
// never been written to since the last flush.
func (b *Buffer) Flush() (int, error) {
	if b.sink == nil {
		return 0, ErrNoSink
	}
	if len(b.data) == 0 || b.unused == len(b.data) {
		return 0, nil
	}

	// The C original's flush wrote once and trusted write() to either
	// complete or fail; io.Writer makes no such promise, so retry short
	// writes until the whole record has gone out or an error surfaces.
	written := 0
	for written < len(b.data) {
		n, err := b.sink.Write(b.data[written:])
		written += n
		if err != nil {
			return written, xerrors.Errorf("tarbuilder: buffer flush: %w", err)
		}
		if n == 0 {
			return written, xerrors.Errorf("tarbuilder: buffer flush: sink accepted 0 bytes")
		}
	}

	for i := range b.data {
		b.data[i] = 0
	}
	b.unused = len(b.data)

	return written, nil
}

// Reset clears the buffer contents and forgets its sink without freeing
// the underlying array.
func (b *Buffer) Reset() {
	b.sink = nil
	b.unused = len(b.data)
	for i := range b.data {
		b.data[i] = 0
	}
}

// writeZeroPad writes n zero bytes straight to the sink, borrowed from the
// buffer's always-zero unused tail instead of a freshly allocated slice.
// It's used by the splice fast path to pad a block boundary without
// routing the padding through GetBlock/Reclaim accounting.
func (b *Buffer) writeZeroPad(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	if b.sink == nil {
		return 0, ErrNoSink
	}
	if n > b.unused {
		n = b.unused
	}
	return b.sink.Write(b.data[len(b.data)-n:])
}
