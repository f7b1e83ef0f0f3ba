package tarbuilder

import (
	"io"
	"os"

	"golang.org/x/xerrors"
)

// WritePathBlocks writes p's bytes into buf in BlockSize chunks, zero-padding
// the final chunk. It's used for the GNU LongLink/LongName data that follows
// an 'L' or 'K' header: the path itself travels as its own ceil(len/B)-block
// run, independent of the real header that follows.
func WritePathBlocks(buf *Buffer, p string) (int, error) {
	remaining := []byte(p)
	total := 0

	for len(remaining) > 0 {
		n := len(remaining)
		if n > BlockSize {
			n = BlockSize
		}

		block, given, err := buf.GetBlock(n)
		if err != nil {
			return total, xerrors.Errorf("tarbuilder: write path blocks: %w", err)
		}
		copy(block, remaining[:n])

		total += given
		remaining = remaining[n:]
	}

	return total, nil
}

// WriteContents copies size bytes of src's contents into buf, padded to the
// next BlockSize boundary, and returns the padded byte count written.
//
// When buf's sink is a pipe and the buffer has already been flushed at
// least once during this call, remaining bytes are moved with a zero-copy
// splice(2) straight from src to the sink, bypassing the staging buffer
// entirely. That ordering requirement — splice only once something has
// already reached the sink via a flush — keeps the header block (always
// staged through the buffer) ahead of the spliced payload.
func WriteContents(buf *Buffer, src *os.File, size int64) (int64, error) {
	remaining := size
	var total int64
	var splicedTotal int64
	emptiedOnce := false

	sinkFile, sinkIsFile := sinkAsFile(buf)

	for remaining > 0 {
		if buf.Full() {
			if _, err := buf.Flush(); err != nil {
				return total, xerrors.Errorf("tarbuilder: write contents: %w", err)
			}
			emptiedOnce = true
		}

		if buf.IsPipe() && emptiedOnce && sinkIsFile && spliceAvailable() {
			n, supported, err := spliceAll(sinkFile, src, remaining)
			if err != nil {
				return total, xerrors.Errorf("tarbuilder: write contents: splice: %w", err)
			}
			if supported {
				total += n
				splicedTotal += n
				remaining -= n
				if n == 0 {
					// src ran dry before size was satisfied; treat the
					// shortfall as implicit EOF rather than spinning.
					remaining = 0
				}
				continue
			}
			// The kernel rejected splice outright (ENOSYS/EINVAL) and
			// moved nothing: fall through to the buffered copy for
			// this chunk instead of treating the rejection as EOF,
			// which would truncate the archived body below the
			// header's declared size. spliceAvailable() will report
			// false on every later call in this process, so this
			// fallback only costs one failed syscall per process.
		}

		readLen := int64(BlockSize)
		if remaining < readLen {
			readLen = remaining
		}

		block, given, err := buf.GetBlock(int(readLen))
		if err != nil {
			return total, xerrors.Errorf("tarbuilder: write contents: %w", err)
		}

		n, err := readOnce(src, block[:readLen])
		if err != nil && err != io.EOF {
			return total, xerrors.Errorf("tarbuilder: write contents: %w", err)
		}

		if int64(n) < readLen {
			delta, rerr := buf.Reclaim(n, given)
			if rerr != nil {
				return total, xerrors.Errorf("tarbuilder: write contents: %w", rerr)
			}
			total += int64(given - delta)
			remaining = 0
			continue
		}

		total += int64(given)
		remaining -= readLen
	}

	if splicedTotal%BlockSize != 0 {
		pad := BlockSize - int(splicedTotal%BlockSize)
		n, err := buf.writeZeroPad(pad)
		total += int64(n)
		if err != nil {
			return total, xerrors.Errorf("tarbuilder: write contents: pad: %w", err)
		}
	}

	return total, nil
}

// readOnce reads up to len(p) bytes from src in a single call, retrying only
// on EINTR. A short, non-EOF read is deliberately NOT retried into a full
// read: the caller treats any short read as end-of-file, mirroring the
// original single-read-per-block copy loop this streamer is modeled on.
func readOnce(src *os.File, p []byte) (int, error) {
	for {
		n, err := src.Read(p)
		if err == nil || n > 0 {
			return n, err
		}
		if isEINTR(err) {
			continue
		}
		return n, err
	}
}

func sinkAsFile(buf *Buffer) (*os.File, bool) {
	f, ok := buf.sink.(*os.File)
	return f, ok
}
