package tarbuilder

import (
	"io/fs"
	"os"
	"time"
)

// Sysinfo carries the platform-specific stat(2) fields fs.FileInfo
// doesn't expose portably but the header encoder needs: ownership,
// device numbers, and link count.
type Sysinfo struct {
	UID   uint32
	GID   uint32
	Rdev  uint64
	Nlink uint64
}

// BuildHeader turns a (path, member name, file info) triple into a
// Header, selecting typeflag from the file's mode bits, splitting the
// member name into USTAR's name+prefix fields (or marking Truncated),
// resolving symlink targets, and populating device numbers. readlink is
// called only for symlinks, via os.Readlink(path).
func BuildHeader(path, memberName string, fi fs.FileInfo) (*Header, error) {
	sys := sysinfoFromFileInfo(fi)

	h := &Header{
		Mode:    int64(fi.Mode().Perm()),
		UID:     int64(sys.UID),
		GID:     int64(sys.GID),
		ModTime: fi.ModTime().Unix(),
	}

	setNameFields(h, memberName)

	unixMode := modeToUnix(fi.Mode())
	h.Typeflag = typeflagForMode(unixMode)

	switch h.Typeflag {
	case TypeDir:
		h.Size = 0
	case TypeSymlink:
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		setLinkFields(h, target)
		h.Size = 0
	case TypeChar, TypeBlock:
		h.Devmajor = int64(major(sys.Rdev))
		h.Devminor = int64(minor(sys.Rdev))
		h.Size = 0
	case TypeFifo:
		h.Size = 0
	default:
		h.Size = fi.Size()
	}

	return h, nil
}

// ModTimeFor is a small convenience for callers that build headers by
// hand rather than from an fs.FileInfo.
func ModTimeFor(t time.Time) int64 {
	return t.Unix()
}
