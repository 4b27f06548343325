package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/alpkit/internal/apktest"
	"github.com/ralt/alpkit/internal/models"
)

func compress(t *testing.T, data string, c apktest.Compression) []byte {
	t.Helper()
	out, err := apktest.Compress([]byte(data), c)
	if err != nil {
		t.Fatalf("Failed to compress: %v", err)
	}
	return out
}

type segmentResult struct {
	Index  int
	Offset int64
	Codec  Codec
	Data   string
}

func readAll(t *testing.T, d *Demuxer) ([]segmentResult, error) {
	t.Helper()
	var got []segmentResult
	for {
		seg, err := d.Next()
		if errors.Is(err, io.EOF) {
			return got, nil
		}
		if err != nil {
			return got, err
		}
		data, err := io.ReadAll(seg)
		if err != nil {
			return got, err
		}
		got = append(got, segmentResult{seg.Index, seg.Offset, seg.Codec, string(data)})
	}
}

func TestDemuxerSplitsConcatenatedMembers(t *testing.T) {
	a := compress(t, "first segment", apktest.Gzip)
	b := compress(t, "second segment", apktest.Gzip)
	c := compress(t, "third segment", apktest.Gzip)

	input := bytes.Join([][]byte{a, b, c}, nil)
	d := NewDemuxer(bytes.NewReader(input))

	got, err := readAll(t, d)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []segmentResult{
		{0, 0, CodecGzip, "first segment"},
		{1, int64(len(a)), CodecGzip, "second segment"},
		{2, int64(len(a) + len(b)), CodecGzip, "third segment"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segments mismatch (-want +got):\n%s", diff)
	}
	if d.Offset() != int64(len(input)) {
		t.Errorf("Expected offset %d after last segment, got %d", len(input), d.Offset())
	}
}

func TestDemuxerSkipsUnreadSegments(t *testing.T) {
	a := compress(t, "skipped", apktest.Gzip)
	b := compress(t, "wanted", apktest.Gzip)

	d := NewDemuxer(bytes.NewReader(append(a, b...)))
	if _, err := d.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	seg, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	data, err := io.ReadAll(seg)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "wanted" {
		t.Errorf("Expected second segment content, got %q", data)
	}
	if seg.Offset != int64(len(a)) {
		t.Errorf("Expected offset %d, got %d", len(a), seg.Offset)
	}
}

func TestDemuxerTerminalSegments(t *testing.T) {
	tests := []struct {
		name  string
		codec apktest.Compression
		want  Codec
	}{
		{"zstd", apktest.Zstd, CodecZstd},
		{"xz", apktest.XZ, CodecXZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head := compress(t, "control", apktest.Gzip)
			tail := compress(t, "data", tt.codec)

			got, err := readAll(t, NewDemuxer(bytes.NewReader(append(head, tail...))))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			want := []segmentResult{
				{0, 0, CodecGzip, "control"},
				{1, int64(len(head)), tt.want, "data"},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDemuxerErrors(t *testing.T) {
	member := compress(t, "some payload that is long enough", apktest.Gzip)

	tests := []struct {
		name    string
		input   []byte
		limit   int64
		want    models.ErrorType
		segment int
	}{
		{
			name:    "cut inside trailer",
			input:   member[:len(member)-3],
			want:    models.ErrTruncatedContainer,
			segment: 0,
		},
		{
			name:    "cut inside second member",
			input:   append(append([]byte{}, member...), member[:len(member)/2]...),
			want:    models.ErrTruncatedContainer,
			segment: 1,
		},
		{
			name:    "partial magic",
			input:   []byte{0x1f},
			want:    models.ErrTruncatedContainer,
			segment: 0,
		},
		{
			name:    "not compressed",
			input:   []byte("plain text, not a stream"),
			want:    models.ErrMalformedHeader,
			segment: 0,
		},
		{
			name:    "garbage after member",
			input:   append(append([]byte{}, member...), []byte("trailing junk")...),
			want:    models.ErrMalformedHeader,
			segment: 1,
		},
		{
			name:    "limit exceeded",
			input:   compress(t, string(make([]byte, 1<<20)), apktest.Gzip),
			limit:   4096,
			want:    models.ErrDecompressionLimitExceeded,
			segment: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDemuxer(bytes.NewReader(tt.input), WithMaxSegmentBytes(tt.limit))
			_, err := readAll(t, d)
			if err == nil {
				t.Fatalf("Expected %s error, got nil", tt.want)
			}

			var ae *models.AlpkitError
			if !errors.As(err, &ae) {
				t.Fatalf("Expected AlpkitError, got %T: %v", err, err)
			}
			if ae.Type != tt.want {
				t.Errorf("Expected error type %s, got %s (%v)", tt.want, ae.Type, err)
			}
			if ae.Segment != tt.segment {
				t.Errorf("Expected error in segment %d, got %d", tt.segment, ae.Segment)
			}
		})
	}
}

func TestDemuxerLimitAllowsExactSize(t *testing.T) {
	payload := string(bytes.Repeat([]byte("a"), 4096))
	d := NewDemuxer(bytes.NewReader(compress(t, payload, apktest.Gzip)), WithMaxSegmentBytes(4096))

	got, err := readAll(t, d)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0].Data) != 4096 {
		t.Errorf("Expected one segment of 4096 bytes, got %d segments", len(got))
	}
}

func TestDemuxerEmptyInput(t *testing.T) {
	d := NewDemuxer(bytes.NewReader(nil))
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF for empty input, got %v", err)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		header []byte
		want   Codec
	}{
		{[]byte{0x1f, 0x8b, 0x08}, CodecGzip},
		{[]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, CodecZstd},
		{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, CodecXZ},
		{[]byte{0xfd, '7', 'z'}, CodecUnknown},
		{[]byte("PK\x03\x04"), CodecUnknown},
	}

	for _, tt := range tests {
		if got := Sniff(tt.header); got != tt.want {
			t.Errorf("Sniff(% x) = %s, want %s", tt.header, got, tt.want)
		}
	}
}
