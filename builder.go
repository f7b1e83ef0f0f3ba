package tarbuilder

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"golang.org/x/xerrors"
)

// BuilderStats is a snapshot of a Builder's running counters, exposed
// through Stats and optionally mirrored into Prometheus via WithMetrics.
type BuilderStats struct {
	FilesWritten   int64
	BytesWritten   int64
	EntriesSkipped int64
	Warnings       int64
}

// BuilderOption configures a Builder at construction time, following the
// functional-options style the teacher's WriterOption uses.
type BuilderOption func(*Builder)

// WithBlockFactor sets the staging buffer's block factor (see NewBuffer).
func WithBlockFactor(factor int) BuilderOption {
	return func(b *Builder) { b.blockFactor = factor }
}

// WithOptions sets which long-name/long-link dialects are enabled.
func WithOptions(opts Options) BuilderOption {
	return func(b *Builder) { b.opts = opts }
}

// WithLookup installs a UserLookup used to resolve Uname/Gname for every
// entry. Without one, headers carry numeric ownership only.
func WithLookup(l UserLookup) BuilderOption {
	return func(b *Builder) { b.lookup = l }
}

// WithMatcher installs a Matcher used to exclude entries from WriteFile
// and AddTree.
func WithMatcher(m Matcher) BuilderOption {
	return func(b *Builder) { b.matcher = m }
}

// Builder assembles a USTAR/GNU/PAX tar stream from filesystem entries,
// writing blocks through its internal Buffer to a caller-supplied sink.
// It mirrors the shape (and name) of the original b_builder: a buffer, an
// optional exclusion matcher, an optional ownership lookup service, and a
// running total, all hung off one struct that owns the write path end to
// end.
type Builder struct {
	buf         *Buffer
	opts        Options
	blockFactor int
	lookup      UserLookup
	matcher     Matcher
	metrics     *metricsCollector

	total    int64
	skipped  int64
	files    int64
	warnings int64
}

// NewBuilder returns a Builder ready to write to sink.
func NewBuilder(sink io.Writer, opts ...BuilderOption) *Builder {
	b := &Builder{
		opts:        DefaultOptions,
		blockFactor: DefaultBlockFactor,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.buf = NewBuffer(b.blockFactor)
	b.buf.SetSink(sink)
	if f, ok := sink.(*os.File); ok {
		b.buf.SetPipe(isPipeFile(f))
	}

	return b
}

// SetLookup installs or replaces the UserLookup used to resolve
// Uname/Gname for every subsequent entry.
func (b *Builder) SetLookup(l UserLookup) {
	b.lookup = l
}

// SetMatcher installs or replaces the Matcher used to exclude entries
// from WriteFile and AddTree.
func (b *Builder) SetMatcher(m Matcher) {
	b.matcher = m
}

// SetSink redirects subsequent writes to w, flushing whatever is
// currently staged to the old sink first so no buffered bytes are lost
// or silently redirected along with it.
func (b *Builder) SetSink(w io.Writer) error {
	if _, err := b.buf.Flush(); err != nil {
		return err
	}
	b.buf.SetSink(w)
	isPipe := false
	if f, ok := w.(*os.File); ok {
		isPipe = isPipeFile(f)
	}
	b.buf.SetPipe(isPipe)
	return nil
}

// Total returns the number of content bytes (padded) written so far,
// mirroring b_builder's running ctx->total.
func (b *Builder) Total() int64 {
	return b.total
}

// Stats returns a snapshot of the Builder's counters.
func (b *Builder) Stats() BuilderStats {
	return BuilderStats{
		FilesWritten:   b.files,
		BytesWritten:   b.total,
		EntriesSkipped: b.skipped,
		Warnings:       b.warnings,
	}
}

// Flush forces any staged-but-unwritten block out to the sink.
func (b *Builder) Flush() error {
	_, err := b.buf.Flush()
	return err
}

// Close flushes the buffer; the sink stays attached. It does not write an
// end-of-archive marker; callers that need the two 512-byte zero blocks
// POSIX tar readers expect can write them to the sink directly after
// Close, or via WriteTrailer.
func (b *Builder) Close() error {
	return b.Flush()
}

// WriteTrailer appends the two all-zero end-of-archive blocks most tar
// readers expect before EOF.
func (b *Builder) WriteTrailer() error {
	var zero [BlockSize]byte
	for i := 0; i < 2; i++ {
		block, _, err := b.buf.GetBlock(BlockSize)
		if err != nil {
			return err
		}
		copy(block, zero[:])
	}
	return b.Flush()
}

// WriteFile adds one filesystem entry to the archive. path is opened (for
// regular files) to stream content from; memberName is the name recorded
// in the archive, defaulting to path when empty. fi is typically the
// result of os.Lstat(path) so symlinks are archived as links rather than
// followed.
//
// It returns 1 on success, 0 if the entry was excluded by the Builder's
// Matcher (checked before anything is opened), or −1 with the error
// record populated, mirroring b_builder_write_file's return contract.
func (b *Builder) WriteFile(path, memberName string, fi fs.FileInfo) (int, error) {
	if memberName == "" {
		memberName = path
	}

	if b.matcher != nil && b.matcher.Excluded(path, fi) {
		return 0, nil
	}

	h, err := BuildHeader(path, memberName, fi)
	if err != nil {
		// A failed readlink or vanished entry costs this one member,
		// not the archive: the stream so far is still well-formed.
		return -1, newError(SeverityWarn, path, err)
	}

	if b.lookup != nil {
		uname, gname, lerr := b.lookup.Lookup(uint32(h.UID), uint32(h.GID))
		if lerr != nil {
			b.warnings++
			b.metrics.observeWarning()
		} else {
			h.SetUsernames(uname, gname)
		}
	}

	var src *os.File
	if h.Typeflag == TypeReg {
		f, oerr := os.Open(path)
		if oerr != nil {
			return -1, newError(SeverityWarn, path, oerr)
		}
		src = f
		defer src.Close()
	}

	if h.Truncated {
		if err := b.writeExtension(h); err != nil {
			sev := SeverityFatal
			if errors.Is(err, ErrNameTooLong) {
				sev = SeverityWarn
			}
			return -1, newError(sev, path, err)
		}
	}

	useGNU := h.Truncated && b.opts.Has(OptGNULongLink) && !b.opts.Has(OptPAX)
	if err := b.putHeaderBlock(h, useGNU); err != nil {
		return -1, newError(SeverityFatal, path, err)
	}

	var written int64
	if src != nil {
		n, err := WriteContents(b.buf, src, h.Size)
		written = n
		b.total += n
		if err != nil {
			return -1, newError(SeverityFatal, path, err)
		}
	}

	b.files++
	b.metrics.observeFile(written)

	return 1, nil
}

// writeExtension emits whichever long-name/long-link dialect is enabled
// ahead of the real header, per h.Truncated. PAX takes precedence over
// GNU LongLink when both are enabled.
func (b *Builder) writeExtension(h *Header) error {
	switch {
	case b.opts.Has(OptPAX):
		var records []PAXRecord
		if h.nameTruncated {
			records = append(records, PAXRecord{Keyword: "path", Value: h.nameFull})
		}
		if h.linkTruncated {
			records = append(records, PAXRecord{Keyword: "linkpath", Value: h.linkFull})
		}
		if len(records) == 0 {
			return nil
		}

		var block [BlockSize]byte
		data, err := EncodePAXBlock(&block, h.nameFull, records)
		if err != nil {
			return err
		}
		if err := b.putBlock(&block); err != nil {
			return err
		}
		return b.writeDataBlocks(data)

	case b.opts.Has(OptGNULongLink):
		if h.nameTruncated {
			if err := b.writeLongLink(h.nameFull, false); err != nil {
				return err
			}
		}
		if h.linkTruncated {
			if err := b.writeLongLink(h.linkFull, true); err != nil {
				return err
			}
		}
		return nil

	default:
		return xerrors.Errorf("tarbuilder: name too long and no extension dialect enabled: %w", ErrNameTooLong)
	}
}

func (b *Builder) writeLongLink(longpath string, linkTarget bool) error {
	var block [BlockSize]byte
	if err := EncodeLongLinkBlock(&block, longpath, linkTarget); err != nil {
		return err
	}
	if err := b.putBlock(&block); err != nil {
		return err
	}
	_, err := WritePathBlocks(b.buf, longpath)
	return err
}

func (b *Builder) writeDataBlocks(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > BlockSize {
			n = BlockSize
		}
		block, _, err := b.buf.GetBlock(n)
		if err != nil {
			return err
		}
		copy(block, data[:n])
		data = data[n:]
	}
	return nil
}

func (b *Builder) putHeaderBlock(h *Header, useGNUMagic bool) error {
	var block [BlockSize]byte
	if err := h.EncodeBlock(&block, useGNUMagic); err != nil {
		return err
	}
	return b.putBlock(&block)
}

func (b *Builder) putBlock(block *[BlockSize]byte) error {
	dst, _, err := b.buf.GetBlock(BlockSize)
	if err != nil {
		return err
	}
	copy(dst, block[:])
	return nil
}

func isPipeFile(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&fs.ModeNamedPipe != 0
}
