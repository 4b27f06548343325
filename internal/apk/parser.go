// Package apk reads APKv2 package containers.
package apk

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ralt/alpkit/internal/archive"
	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/stream"
	"github.com/ralt/alpkit/internal/utils"
	"github.com/sirupsen/logrus"
)

const pkginfoName = ".PKGINFO"

// Config controls how a container is decoded.
type Config struct {
	// MaxSegmentBytes caps the decompressed size of each segment. Zero
	// disables the cap.
	MaxSegmentBytes int64
	// SkipFiles stops after the control segment, leaving Files empty.
	SkipFiles bool
	// StrictEntryKinds fails on entry kinds outside the recognized set
	// instead of skipping them with a warning.
	StrictEntryKinds bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxSegmentBytes: 1 << 30,
	}
}

// Open parses the package container at path. The container file's checksums
// are recorded alongside the decoded metadata.
func Open(path string, cfg Config) (*Package, error) {
	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return nil, models.WithPath(models.NewError(models.ErrFileOp,
			fmt.Errorf("failed to calculate checksums: %w", err)), path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, models.WithPath(models.NewError(models.ErrFileOp, err), path)
	}
	defer f.Close()

	pkg, err := Load(bufio.NewReader(f), cfg)
	if err != nil {
		return nil, models.WithPath(err, path)
	}
	pkg.Path = path
	pkg.Checksums = checksums
	return pkg, nil
}

// Load parses a package container from r in a single forward pass.
func Load(r io.Reader, cfg Config) (*Package, error) {
	d := stream.NewDemuxer(r, stream.WithMaxSegmentBytes(cfg.MaxSegmentBytes))
	l := &loader{cfg: cfg, demux: d, pkg: &Package{}}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.pkg, nil
}

type loader struct {
	cfg   Config
	demux *stream.Demuxer
	pkg   *Package
}

// openSegment returns a reader positioned at the first entry of the next
// segment. first is nil for a segment without entries.
func (l *loader) openSegment(content bool) (*stream.Segment, *archive.Reader, *archive.Entry, error) {
	seg, err := l.demux.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	ar := archive.NewReader(seg,
		archive.WithContent(content),
		archive.WithStrictKinds(l.cfg.StrictEntryKinds),
		archive.WithLocation(seg.Index, seg.Offset),
	)
	first, err := ar.Next()
	if errors.Is(err, io.EOF) {
		return seg, ar, nil, nil
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return seg, ar, first, nil
}

func (l *loader) run() error {
	// The control segment's compressed bytes identify the package in
	// repository indexes.
	control := sha1.New()
	l.demux.Tap(control)

	seg, ar, first, err := l.openSegment(true)
	if errors.Is(err, io.EOF) {
		return models.NewSegmentError(models.ErrTruncatedContainer, 0, 0,
			fmt.Errorf("container has no segments"))
	}
	if err != nil {
		return err
	}

	if first != nil && isSignatureEntry(first.Path) {
		if err := l.readSignatures(ar, first); err != nil {
			return err
		}
		sigIndex := seg.Index
		if err := seg.Drain(); err != nil {
			return err
		}
		control.Reset()

		seg, ar, first, err = l.openSegment(true)
		if errors.Is(err, io.EOF) {
			return models.NewSegmentError(models.ErrTruncatedContainer, sigIndex+1, l.demux.Offset(),
				fmt.Errorf("container ends after the signature segment"))
		}
		if err != nil {
			return err
		}
	}

	if err := l.readControl(seg, ar, first); err != nil {
		return err
	}
	if err := seg.Drain(); err != nil {
		return err
	}
	l.demux.Tap(nil)
	l.pkg.controlSHA1 = hex.EncodeToString(control.Sum(nil))

	if l.cfg.SkipFiles {
		logrus.Debugf("skipping data segment of %s", l.pkg.info.Name)
		return nil
	}

	seg, ar, first, err = l.openSegment(false)
	if errors.Is(err, io.EOF) {
		// A package without data, e.g. a meta package.
		return nil
	}
	if err != nil {
		return err
	}
	if err := l.readData(ar, first); err != nil {
		return err
	}

	extra, err := l.demux.Next()
	if err == nil {
		return models.NewSegmentError(models.ErrCorruptArchive, extra.Index, extra.Offset,
			fmt.Errorf("unexpected segment after the data segment"))
	}
	if !errors.Is(err, io.EOF) {
		return err
	}
	logrus.Debugf("decoded %d segments, %d bytes", seg.Index+1, l.demux.Offset())
	return nil
}

func (l *loader) readSignatures(ar *archive.Reader, entry *archive.Entry) error {
	var err error
	for ; err == nil; entry, err = ar.Next() {
		if !isSignatureEntry(entry.Path) {
			l.pkg.warnings.Addf(models.WarnMalformedControlEntry, entry.Path, 0,
				"ignored entry in signature segment")
			continue
		}
		if sig, ok := readSignature(entry.Path, entry.Content, &l.pkg.warnings); ok {
			l.pkg.signatures = append(l.pkg.signatures, sig)
		}
	}
	l.pkg.warnings = append(l.pkg.warnings, ar.Warnings()...)
	if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *loader) readControl(seg *stream.Segment, ar *archive.Reader, entry *archive.Entry) error {
	var (
		pkginfo []byte
		found   bool
		err     error
	)
	for ; err == nil && entry != nil; entry, err = ar.Next() {
		if strings.Contains(entry.Path, "/") {
			l.pkg.warnings.Addf(models.WarnMalformedControlEntry, entry.Path, 0,
				"control entry has a directory component")
			continue
		}
		if entry.Kind != archive.KindRegular {
			continue
		}
		if entry.Path == pkginfoName {
			pkginfo, found = entry.Content, true
			continue
		}
		if kind, ok := models.ParseScriptKind(entry.Path); ok {
			l.pkg.scripts = append(l.pkg.scripts, models.Script{Kind: kind, Content: entry.Content})
			continue
		}
		logrus.Debugf("ignoring control entry %q", entry.Path)
	}
	l.pkg.warnings = append(l.pkg.warnings, ar.Warnings()...)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if !found {
		return models.NewSegmentError(models.ErrMissingControlInfo, seg.Index, seg.Offset,
			fmt.Errorf("no %s in control segment", pkginfoName))
	}

	info, err := parsePKGINFO(pkginfo, &l.pkg.warnings)
	if err != nil {
		return models.NewSegmentError(models.ErrCorruptArchive, seg.Index, seg.Offset,
			fmt.Errorf("failed to parse %s: %w", pkginfoName, err))
	}
	l.pkg.info = info
	return nil
}

func (l *loader) readData(ar *archive.Reader, entry *archive.Entry) error {
	var err error
	for ; err == nil && entry != nil; entry, err = ar.Next() {
		l.pkg.files = append(l.pkg.files, entry.FileInfo())
	}
	l.pkg.warnings = append(l.pkg.warnings, ar.Warnings()...)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
