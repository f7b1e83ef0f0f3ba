package tarbuilder

import "io/fs"

// Raw S_IFMT type bits, reproduced here because fs.FileMode only exposes
// the portable subset (ModeDir, ModeSymlink, ...) and the header encoder
// needs to classify a typeflag the same way stat(2) would. Adapted from
// the teacher's mode.go (UnixToMode/ModeToUnix), which does the same
// translation in the other direction for SquashFS inodes.
const (
	sIFMT   = 0xf000
	sIFREG  = 0x8000
	sIFDIR  = 0x4000
	sIFBLK  = 0x6000
	sIFCHR  = 0x2000
	sIFIFO  = 0x1000
	sIFLNK  = 0xa000
	sIFSOCK = 0xc000
)

// modeToUnix converts a fs.FileMode into the raw S_IFMT-tagged value
// BuildHeader's typeflag classification expects.
func modeToUnix(mode fs.FileMode) uint32 {
	res := uint32(mode.Perm())

	switch {
	case mode&fs.ModeCharDevice != 0:
		res |= sIFCHR
	case mode&fs.ModeDevice != 0:
		res |= sIFBLK
	case mode&fs.ModeDir != 0:
		res |= sIFDIR
	case mode&fs.ModeNamedPipe != 0:
		res |= sIFIFO
	case mode&fs.ModeSymlink != 0:
		res |= sIFLNK
	case mode&fs.ModeSocket != 0:
		res |= sIFSOCK
	default:
		res |= sIFREG
	}

	if mode&fs.ModeSetgid != 0 {
		res |= 0o2000
	}
	if mode&fs.ModeSetuid != 0 {
		res |= 0o4000
	}
	if mode&fs.ModeSticky != 0 {
		res |= 0o1000
	}

	return res
}
