// Package archive decodes the tar entries of a decompressed segment.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ralt/alpkit/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	paxXattrPrefix = "SCHILY.xattr."
	paxApkChecksum = "APK-TOOLS.checksum.SHA1"
)

// Kind is the kind of an archive entry.
type Kind int

const (
	KindRegular Kind = iota
	KindDirectory
	KindSymlink
	KindHardlink
	KindCharDevice
	KindBlockDevice
	KindFifo
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindHardlink:
		return "hardlink"
	case KindCharDevice:
		return "char-device"
	case KindBlockDevice:
		return "block-device"
	case KindFifo:
		return "fifo"
	default:
		return "unknown"
	}
}

// FileType returns the apk file type letter for the kind.
func (k Kind) FileType() models.FileType {
	switch k {
	case KindDirectory:
		return models.FileDirectory
	case KindSymlink:
		return models.FileSymlink
	case KindHardlink:
		return models.FileHardlink
	case KindCharDevice:
		return models.FileChar
	case KindBlockDevice:
		return models.FileBlock
	case KindFifo:
		return models.FileFifo
	default:
		return models.FileRegular
	}
}

func kindOf(typeflag byte) (Kind, bool) {
	switch typeflag {
	case tar.TypeReg, tar.TypeRegA, tar.TypeCont:
		return KindRegular, true
	case tar.TypeDir:
		return KindDirectory, true
	case tar.TypeSymlink:
		return KindSymlink, true
	case tar.TypeLink:
		return KindHardlink, true
	case tar.TypeChar:
		return KindCharDevice, true
	case tar.TypeBlock:
		return KindBlockDevice, true
	case tar.TypeFifo:
		return KindFifo, true
	default:
		return 0, false
	}
}

// Entry is a decoded archive entry.
type Entry struct {
	// Path is relative and slash-separated, without a trailing slash.
	Path       string
	Kind       Kind
	LinkTarget string
	Size       int64
	Mode       models.Mode
	UID        int
	GID        int
	Uname      string
	Gname      string
	ModTime    time.Time
	DevMajor   int64
	DevMinor   int64

	// Content is set for regular files unless content reading is disabled.
	Content []byte
	// Xattrs are sorted by name.
	Xattrs []models.Xattr
	// Digest is the hex SHA-1 apk-tools stores for regular files.
	Digest string
}

// Device returns the combined device number of char and block devices.
func (e *Entry) Device() uint64 {
	if e.Kind != KindCharDevice && e.Kind != KindBlockDevice {
		return 0
	}
	return makedev(uint64(e.DevMajor), uint64(e.DevMinor))
}

// FileInfo converts the entry into an inventory record with an absolute
// path.
func (e *Entry) FileInfo() models.FileInfo {
	size := e.Size
	if e.Kind == KindDirectory {
		size = 0
	}
	return models.FileInfo{
		Path:       "/" + e.Path,
		Type:       e.Kind.FileType(),
		LinkTarget: e.LinkTarget,
		Uname:      e.Uname,
		Gname:      e.Gname,
		UID:        e.UID,
		GID:        e.GID,
		Size:       size,
		Mode:       e.Mode,
		ModTime:    e.ModTime,
		Device:     e.Device(),
		Digest:     e.Digest,
		Xattrs:     e.Xattrs,
	}
}

// makedev matches glibc's encoding of major and minor numbers.
func makedev(major, minor uint64) uint64 {
	var dev uint64
	dev |= (major & 0x00000fff) << 8
	dev |= (major & 0xfffff000) << 32
	dev |= (minor & 0x000000ff) << 0
	dev |= (minor & 0xffffff00) << 12
	return dev
}

// Option configures a Reader.
type Option func(*Reader)

// WithContent controls whether regular file bodies are read into memory.
func WithContent(enabled bool) Option {
	return func(r *Reader) {
		r.content = enabled
	}
}

// WithStrictKinds makes unsupported entry kinds fatal instead of skipping
// them with a warning.
func WithStrictKinds(strict bool) Option {
	return func(r *Reader) {
		r.strict = strict
	}
}

// WithLocation records the segment the archive belongs to, for errors.
func WithLocation(segment int, offset int64) Option {
	return func(r *Reader) {
		r.segment = segment
		r.offset = offset
	}
}

// Reader decodes entries lazily, in archive order.
type Reader struct {
	tr      *tar.Reader
	content bool
	strict  bool
	segment int
	offset  int64

	warnings models.Warnings
	err      error
}

// NewReader creates a Reader over a decompressed tar stream.
func NewReader(r io.Reader, opts ...Option) *Reader {
	ar := &Reader{
		tr:      tar.NewReader(r),
		content: true,
		segment: -1,
		offset:  -1,
	}
	for _, opt := range opts {
		opt(ar)
	}
	return ar
}

// Warnings returns the soft findings collected so far.
func (r *Reader) Warnings() models.Warnings {
	return r.warnings
}

// Next advances to the next entry. It returns io.EOF at the end of the
// archive, including archives cut without end-of-archive blocks.
func (r *Reader) Next() (*Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	for {
		hdr, err := r.tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, r.fail(err)
		}

		kind, ok := kindOf(hdr.Typeflag)
		if !ok {
			if r.strict {
				return nil, r.fail(r.errorf(models.ErrUnsupportedEntryKind,
					"entry %q has unsupported type %q", hdr.Name, hdr.Typeflag))
			}
			r.warnings.Addf(models.WarnUnsupportedEntryKind, hdr.Name, 0,
				"skipped entry with unsupported type %q", hdr.Typeflag)
			logrus.Debugf("skipping %q: unsupported tar type %q", hdr.Name, hdr.Typeflag)
			continue
		}

		name, err := cleanPath(hdr.Name)
		if err != nil {
			return nil, r.fail(r.errorf(models.ErrCorruptArchive, "%v", err))
		}
		if name == "." {
			// The archive root itself, as some tar implementations emit "./".
			continue
		}

		entry := &Entry{
			Path:       name,
			Kind:       kind,
			LinkTarget: hdr.Linkname,
			Size:       hdr.Size,
			Mode:       models.Mode(uint32(hdr.Mode) & 0o7777),
			UID:        hdr.Uid,
			GID:        hdr.Gid,
			Uname:      hdr.Uname,
			Gname:      hdr.Gname,
			ModTime:    hdr.ModTime,
			DevMajor:   hdr.Devmajor,
			DevMinor:   hdr.Devminor,
			Digest:     hdr.PAXRecords[paxApkChecksum],
			Xattrs:     xattrs(hdr.PAXRecords),
		}

		if kind == KindRegular && r.content {
			data, err := io.ReadAll(r.tr)
			if err != nil {
				return nil, r.fail(err)
			}
			if int64(len(data)) != hdr.Size {
				return nil, r.fail(r.errorf(models.ErrCorruptArchive,
					"entry %q: read %d bytes, header says %d", name, len(data), hdr.Size))
			}
			entry.Content = data
		}

		return entry, nil
	}
}

func (r *Reader) fail(err error) error {
	var ae *models.AlpkitError
	if !errors.As(err, &ae) {
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			err = r.errorf(models.ErrCorruptArchive, "archive ends inside an entry: %v", err)
		default:
			err = r.errorf(models.ErrCorruptArchive, "%v", err)
		}
	}
	r.err = err
	return err
}

func (r *Reader) errorf(t models.ErrorType, format string, args ...any) error {
	return models.NewSegmentError(t, r.segment, r.offset, fmt.Errorf(format, args...))
}

// cleanPath validates an entry name and returns it relative and cleaned.
func cleanPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("entry with empty name")
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("entry %q has an absolute path", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("entry %q escapes the archive root", name)
		}
	}
	return path.Clean(name), nil
}

func xattrs(records map[string]string) []models.Xattr {
	var out []models.Xattr
	for key, value := range records {
		if name, ok := strings.CutPrefix(key, paxXattrPrefix); ok && name != "" {
			out = append(out, models.Xattr{Name: name, Value: []byte(value)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
