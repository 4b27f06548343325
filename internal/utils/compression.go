package utils

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipCompress compresses data into a single gzip member
func GzipCompress(data []byte) ([]byte, error) {
	return GzipCompressLevel(data, gzip.DefaultCompression)
}

// GzipCompressLevel compresses data into a single gzip member at the given
// level.
func GzipCompressLevel(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data, following concatenated members
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
