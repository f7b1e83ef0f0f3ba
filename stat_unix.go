//go:build unix

package tarbuilder

import (
	"io/fs"
	"syscall"
)

func sysinfoFromFileInfo(fi fs.FileInfo) *Sysinfo {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return &Sysinfo{}
	}
	return &Sysinfo{
		UID:   uint32(st.Uid),
		GID:   uint32(st.Gid),
		Rdev:  uint64(st.Rdev),
		Nlink: uint64(st.Nlink),
	}
}
