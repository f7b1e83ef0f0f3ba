//go:build unix

package tarbuilder

import (
	"errors"
	"syscall"
)

func isEINTR(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
