//go:build linux

package tarbuilder

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// spliceUnsupported latches to true the first time the kernel rejects
// splice(2) outright (ENOSYS/EINVAL on an otherwise-valid pair of fds), so
// later calls in the same process skip straight to the buffered path
// instead of paying a failed syscall per file.
var spliceUnsupported int32

func spliceAvailable() bool {
	return atomic.LoadInt32(&spliceUnsupported) == 0
}

// spliceAll moves up to remaining bytes from src into dst with splice(2),
// retrying short splices and EINTR until remaining is exhausted or src
// reports EOF. It returns the number of bytes actually moved and whether
// splice was usable at all for this call.
//
// supported is false only when the very first splice attempt is rejected
// outright (ENOSYS/EINVAL) with nothing moved: the caller must fall back
// to the buffered copy loop for the entire remaining span rather than
// treating that rejection as end-of-file, or it would silently truncate
// the archived content below the header's declared size.
func spliceAll(dst, src *os.File, remaining int64) (n int64, supported bool, err error) {
	srcFd := int(src.Fd())
	dstFd := int(dst.Fd())

	for n < remaining {
		k, serr := unix.Splice(srcFd, nil, dstFd, nil, int(remaining-n), 0)
		if serr != nil {
			if serr == unix.EINTR {
				continue
			}
			if n == 0 && (serr == unix.EINVAL || serr == unix.ENOSYS) {
				atomic.StoreInt32(&spliceUnsupported, 1)
				return 0, false, nil
			}
			return n, true, serr
		}
		if k == 0 {
			break
		}
		n += int64(k)
	}

	return n, true, nil
}
