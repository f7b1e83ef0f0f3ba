//go:build !linux

package tarbuilder

import "os"

// splice(2) is Linux-only; other platforms always fall back to the
// buffered copy loop in WriteContents.
func spliceAvailable() bool {
	return false
}

func spliceAll(dst, src *os.File, remaining int64) (int64, bool, error) {
	return 0, false, nil
}
