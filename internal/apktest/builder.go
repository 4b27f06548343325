// Package apktest assembles package containers in memory for tests.
package apktest

import (
	"archive/tar"
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ralt/alpkit/internal/signer"
	"github.com/ralt/alpkit/internal/utils"
	"github.com/ulikunitz/xz"
)

// Epoch is the modification time given to entries that do not set one.
var Epoch = time.Unix(1700000000, 0).UTC()

// File is an archive entry to write.
type File struct {
	Name     string
	Typeflag byte
	Mode     int64
	Content  []byte
	Linkname string
	UID, GID int
	Uname    string
	Gname    string
	ModTime  time.Time
	Devmajor int64
	Devminor int64
	PAX      map[string]string
}

// Regular returns a regular file entry with mode 0644.
func Regular(name, content string) File {
	return File{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Content: []byte(content)}
}

// Dir returns a directory entry with mode 0755.
func Dir(name string) File {
	return File{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}
}

// Symlink returns a symbolic link entry.
func Symlink(name, target string) File {
	return File{Name: name, Typeflag: tar.TypeSymlink, Mode: 0o777, Linkname: target}
}

// Compression selects the codec of the data segment.
type Compression int

const (
	Gzip Compression = iota
	Zstd
	XZ
)

// Builder describes a package container.
type Builder struct {
	// PKGINFO is the .PKGINFO body. The control segment has no .PKGINFO
	// when it is empty and OmitPKGINFO is set.
	PKGINFO     string
	OmitPKGINFO bool
	// Control holds further control entries, such as install scripts.
	Control []File
	// Data is the data segment. It is omitted when nil and NoData is set.
	Data   []File
	NoData bool

	DataCompression Compression

	// Signer signs the control segment. KeyName defaults to
	// "test@example.org-00000000.rsa.pub".
	Signer  signer.RSASigner
	KeyName string
}

// ControlSegment returns the compressed control segment, as Build embeds it.
func (b *Builder) ControlSegment() ([]byte, error) {
	control := b.Control
	if !b.OmitPKGINFO {
		control = append([]File{Regular(".PKGINFO", b.PKGINFO)}, control...)
	}
	controlTar, err := Tar(control, true)
	if err != nil {
		return nil, fmt.Errorf("control segment: %w", err)
	}
	return utils.GzipCompress(controlTar)
}

// Build returns the container bytes.
func (b *Builder) Build() ([]byte, error) {
	var out bytes.Buffer

	controlGz, err := b.ControlSegment()
	if err != nil {
		return nil, err
	}

	if b.Signer != nil {
		sig, err := b.Signer.SignRSA(controlGz)
		if err != nil {
			return nil, err
		}
		keyName := b.KeyName
		if keyName == "" {
			keyName = "test@example.org-00000000.rsa.pub"
		}
		name := fmt.Sprintf(".SIGN.%s.%s", b.Signer.Algorithm(), keyName)
		sigTar, err := Tar([]File{{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Content: sig}}, true)
		if err != nil {
			return nil, fmt.Errorf("signature segment: %w", err)
		}
		sigGz, err := utils.GzipCompress(sigTar)
		if err != nil {
			return nil, err
		}
		out.Write(sigGz)
	}
	out.Write(controlGz)

	if b.Data == nil && b.NoData {
		return out.Bytes(), nil
	}

	dataTar, err := Tar(b.Data, false)
	if err != nil {
		return nil, fmt.Errorf("data segment: %w", err)
	}
	dataSeg, err := Compress(dataTar, b.DataCompression)
	if err != nil {
		return nil, err
	}
	out.Write(dataSeg)
	return out.Bytes(), nil
}

// MustBuild is Build for fixtures that cannot fail.
func (b *Builder) MustBuild() []byte {
	data, err := b.Build()
	if err != nil {
		panic(err)
	}
	return data
}

// Tar writes files as a tar stream. A cut stream ends without the two
// end-of-archive blocks, as abuild writes signature and control segments.
func Tar(files []File, cut bool) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, f := range files {
		modTime := f.ModTime
		if modTime.IsZero() {
			modTime = Epoch
		}
		hdr := &tar.Header{
			Name:       f.Name,
			Typeflag:   f.Typeflag,
			Mode:       f.Mode,
			Size:       int64(len(f.Content)),
			Linkname:   f.Linkname,
			Uid:        f.UID,
			Gid:        f.GID,
			Uname:      f.Uname,
			Gname:      f.Gname,
			ModTime:    modTime,
			Devmajor:   f.Devmajor,
			Devminor:   f.Devminor,
			PAXRecords: f.PAX,
		}
		if len(f.PAX) > 0 {
			hdr.Format = tar.FormatPAX
		}
		if f.Typeflag != tar.TypeReg {
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to write header for %s: %w", f.Name, err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write(f.Content); err != nil {
				return nil, err
			}
		}
	}

	if cut {
		if err := tw.Flush(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compress compresses data as one segment.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case Zstd:
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case XZ:
		var buf bytes.Buffer
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := xw.Write(data); err != nil {
			return nil, err
		}
		if err := xw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return utils.GzipCompress(data)
	}
}

// PKGINFO renders key = value lines.
func PKGINFO(pairs ...string) string {
	var b bytes.Buffer
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "%s = %s\n", pairs[i], pairs[i+1])
	}
	return b.String()
}
