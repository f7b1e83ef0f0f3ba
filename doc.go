// Package tarbuilder produces USTAR/GNU/PAX tar archives by walking a
// filesystem subtree and streaming the resulting byte stream to a
// caller-supplied sink.
//
// The package is organized the way a backup or packaging tool would use
// it: construct a [Builder] with NewBuilder against an io.Writer sink,
// then either drive it entry-by-entry with WriteFile or hand it a root
// directory with AddTree. The Builder owns a block-aligned [Buffer]
// between the header encoder and the sink, and the on-wire header fields
// (name, mode, size, and friends) are encoded in USTAR, GNU LongLink, or
// PAX dialects depending on the Options passed to NewBuilder.
//
// Reading tar archives, compression, encryption, and deduplication are
// out of scope; Builder only ever appends to a stream.
package tarbuilder
