// Package stream splits a container into its back-to-back compressed
// segments in a single forward pass.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ralt/alpkit/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Option configures a Demuxer.
type Option func(*Demuxer)

// WithMaxSegmentBytes caps the decompressed size of each segment. Zero
// disables the cap.
func WithMaxSegmentBytes(n int64) Option {
	return func(d *Demuxer) {
		d.limit = n
	}
}

// Demuxer yields the compressed segments of a container, in order.
type Demuxer struct {
	src   *sourceReader
	cr    *countingReader
	limit int64

	gz    *gzip.Reader
	cur   *Segment
	index int
	done  bool
}

// NewDemuxer creates a Demuxer reading from r.
func NewDemuxer(r io.Reader, opts ...Option) *Demuxer {
	src := &sourceReader{r: r}
	d := &Demuxer{
		src: src,
		cr:  &countingReader{br: bufio.NewReader(src)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Offset returns the number of container bytes consumed so far.
func (d *Demuxer) Offset() int64 {
	return d.cr.n
}

// Tap copies every container byte consumed from now on to w, until Tap is
// called with nil. Peeked bytes are copied once they are consumed.
func (d *Demuxer) Tap(w io.Writer) {
	d.cr.tap = w
}

// Next returns the segment starting right after the previous one. The
// previous segment is drained first. Next returns io.EOF when the input ends
// at a segment boundary.
func (d *Demuxer) Next() (*Segment, error) {
	if d.cur != nil {
		if err := d.cur.Drain(); err != nil {
			return nil, err
		}
		d.cur = nil
	}
	if d.done {
		return nil, io.EOF
	}

	index, offset := d.index, d.cr.n
	header, err := d.cr.Peek(maxMagicLen)
	if len(header) == 0 {
		if errors.Is(err, io.EOF) {
			d.done = true
			return nil, io.EOF
		}
		return nil, d.fail(models.NewSegmentError(models.ErrFileOp, index, offset, err))
	}

	codec := Sniff(header)
	if codec == CodecUnknown {
		if err != nil && isPrefix(header) {
			return nil, d.fail(models.NewSegmentError(models.ErrTruncatedContainer, index, offset,
				fmt.Errorf("input ends inside a segment header")))
		}
		return nil, d.fail(models.NewSegmentError(models.ErrMalformedHeader, index, offset,
			fmt.Errorf("no compressed stream header (got % x)", header)))
	}

	seg := &Segment{
		Index:  index,
		Offset: offset,
		Codec:  codec,
		limit:  d.limit,
		src:    d.src,
	}

	switch codec {
	case CodecGzip:
		if d.gz == nil {
			d.gz, err = gzip.NewReader(d.cr)
		} else {
			err = d.gz.Reset(d.cr)
		}
		if err != nil {
			return nil, d.fail(seg.classify(err, models.ErrMalformedHeader))
		}
		d.gz.Multistream(false)
		seg.dec = d.gz
	case CodecZstd:
		zr, err := zstd.NewReader(d.cr, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, d.fail(seg.classify(err, models.ErrMalformedHeader))
		}
		seg.dec = zr
		seg.close = zr.Close
	case CodecXZ:
		xr, err := xz.NewReader(d.cr)
		if err != nil {
			return nil, d.fail(seg.classify(err, models.ErrMalformedHeader))
		}
		seg.dec = xr
	}

	if !codec.selfDelimiting() {
		// The decoder buffers ahead, so nothing can follow this segment.
		d.done = true
	}

	logrus.Debugf("segment %d: %s stream at offset %d", index, codec, offset)
	d.index++
	d.cur = seg
	return seg, nil
}

func (d *Demuxer) fail(err error) error {
	d.done = true
	return err
}

// Segment is one independently compressed stream of a container. It reads
// as the decompressed bytes.
type Segment struct {
	Index  int
	Offset int64
	Codec  Codec

	dec   io.Reader
	close func()
	src   *sourceReader

	limit int64
	read  int64
	eof   bool
	err   error
}

// Read implements io.Reader.
func (s *Segment) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.eof {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if s.limit > 0 {
		if room := s.limit - s.read + 1; int64(len(p)) > room {
			p = p[:room]
		}
	}

	n, err := s.dec.Read(p)
	s.read += int64(n)

	if s.limit > 0 && s.read > s.limit {
		over := int(s.read - s.limit)
		s.read = s.limit
		s.err = models.NewSegmentError(models.ErrDecompressionLimitExceeded, s.Index, s.Offset,
			fmt.Errorf("decompressed size exceeds %d bytes", s.limit))
		s.release()
		return n - over, s.err
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			s.eof = true
			s.release()
			return n, io.EOF
		}
		s.err = s.classify(err, models.ErrCorruptArchive)
		s.release()
		return n, s.err
	}
	return n, nil
}

// BytesRead returns the number of decompressed bytes read so far.
func (s *Segment) BytesRead() int64 {
	return s.read
}

// Drain discards the remainder of the segment.
func (s *Segment) Drain() error {
	_, err := io.Copy(io.Discard, s)
	return err
}

func (s *Segment) release() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

// classify maps a decoder error to a container error type. fallback is used
// for format errors that are not truncations.
func (s *Segment) classify(err error, fallback models.ErrorType) error {
	var ae *models.AlpkitError
	if errors.As(err, &ae) {
		return err
	}
	if srcErr := s.src.err; srcErr != nil {
		return models.NewSegmentError(models.ErrFileOp, s.Index, s.Offset, srcErr)
	}

	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return models.NewSegmentError(models.ErrTruncatedContainer, s.Index, s.Offset,
			fmt.Errorf("input ends inside %s stream: %w", s.Codec, err))
	case errors.Is(err, gzip.ErrChecksum), errors.As(err, &corrupt):
		return models.NewSegmentError(models.ErrCorruptArchive, s.Index, s.Offset, err)
	default:
		return models.NewSegmentError(fallback, s.Index, s.Offset, err)
	}
}

// sourceReader remembers I/O errors of the underlying source so they are not
// mistaken for corrupt data.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}

// countingReader tracks the container offset. It implements io.ByteReader so
// decompressors use it directly instead of adding their own read-ahead.
type countingReader struct {
	br  *bufio.Reader
	n   int64
	tap io.Writer
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.br.Read(p)
	c.n += int64(n)
	if c.tap != nil && n > 0 {
		c.tap.Write(p[:n])
	}
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.br.ReadByte()
	if err == nil {
		c.n++
		if c.tap != nil {
			c.tap.Write([]byte{b})
		}
	}
	return b, err
}

func (c *countingReader) Peek(n int) ([]byte, error) {
	return c.br.Peek(n)
}
