package stream

import "bytes"

// Codec identifies the compression format of a segment.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecGzip
	CodecZstd
	CodecXZ
)

// String returns the string representation of Codec
func (c Codec) String() string {
	switch c {
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecXZ:
		return "xz"
	default:
		return "unknown"
	}
}

// Magic bytes for segment detection
var (
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// maxMagicLen is the number of bytes Sniff needs to decide.
const maxMagicLen = 6

// Sniff determines the codec from the leading bytes of a segment.
func Sniff(header []byte) Codec {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CodecGzip
	case bytes.HasPrefix(header, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(header, xzMagic):
		return CodecXZ
	default:
		return CodecUnknown
	}
}

// selfDelimiting reports whether the decoder stops exactly at the end of the
// stream, so another segment may follow it.
func (c Codec) selfDelimiting() bool {
	return c == CodecGzip
}

// isPrefix reports whether header could still grow into a known magic.
func isPrefix(header []byte) bool {
	for _, m := range [][]byte{gzipMagic, zstdMagic, xzMagic} {
		if len(header) < len(m) && bytes.HasPrefix(m, header) {
			return true
		}
	}
	return false
}
