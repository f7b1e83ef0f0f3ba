//go:build !unix

package tarbuilder

import "io/fs"

// Non-Unix targets (Windows, WASM, ...) have no uid/gid/rdev to report;
// BuildHeader falls back to zero values, which is enough to produce a
// structurally valid archive even though ownership won't round-trip.
func sysinfoFromFileInfo(fi fs.FileInfo) *Sysinfo {
	return &Sysinfo{}
}
