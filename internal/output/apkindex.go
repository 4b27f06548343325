package output

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ralt/alpkit/internal/apk"
	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/signer"
	"github.com/ralt/alpkit/internal/utils"
	"github.com/sirupsen/logrus"
)

// WriteAPKINDEX writes one APKINDEX record per package, sorted by name and
// version. Packages must have been decoded with their control checksum.
func WriteAPKINDEX(w io.Writer, pkgs []*apk.Package) error {
	sorted := append([]*apk.Package(nil), pkgs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Info(), sorted[j].Info()
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Version < b.Version
	})

	var buf bytes.Buffer
	for _, pkg := range sorted {
		if err := writeRecord(&buf, pkg); err != nil {
			return err
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// writeRecord renders a package in APKINDEX's letter:value format, followed
// by a blank line.
func writeRecord(buf *bytes.Buffer, pkg *apk.Package) error {
	info := pkg.Info()

	checksum, err := utils.PullChecksum(pkg.ControlSHA1())
	if err != nil {
		return fmt.Errorf("failed to encode control checksum of %s: %w", info.Name, err)
	}

	var size int64
	if pkg.Checksums != nil {
		size = pkg.Checksums.Size
	}

	fmt.Fprintf(buf, "C:%s\n", checksum)
	fmt.Fprintf(buf, "P:%s\n", info.Name)
	fmt.Fprintf(buf, "V:%s\n", info.Version)
	fmt.Fprintf(buf, "A:%s\n", info.Arch)
	fmt.Fprintf(buf, "S:%d\n", size)
	fmt.Fprintf(buf, "I:%d\n", info.InstalledSize)

	if info.Description != "" {
		fmt.Fprintf(buf, "T:%s\n", info.Description)
	}
	if info.URL != "" {
		fmt.Fprintf(buf, "U:%s\n", info.URL)
	}
	if info.License != "" {
		fmt.Fprintf(buf, "L:%s\n", info.License)
	}
	if info.Origin != "" {
		fmt.Fprintf(buf, "o:%s\n", info.Origin)
	}
	if info.Maintainer != "" {
		fmt.Fprintf(buf, "m:%s\n", info.Maintainer)
	}
	if info.BuildDate != 0 {
		fmt.Fprintf(buf, "t:%d\n", info.BuildDate)
	}
	if info.Commit != "" {
		fmt.Fprintf(buf, "c:%s\n", info.Commit)
	}

	depends := append(append([]models.Dependency(nil), info.Depends...), info.Conflicts...)
	writeDeps(buf, 'D', depends)
	writeDeps(buf, 'p', info.Provides)
	writeDeps(buf, 'i', info.InstallIf)
	if info.ProviderPriority != nil {
		fmt.Fprintf(buf, "k:%d\n", *info.ProviderPriority)
	}
	writeDeps(buf, 'r', info.Replaces)
	if info.ReplacesPriority != nil {
		fmt.Fprintf(buf, "q:%d\n", *info.ReplacesPriority)
	}

	buf.WriteString("\n")
	return nil
}

func writeDeps(buf *bytes.Buffer, key byte, deps []models.Dependency) {
	if len(deps) == 0 {
		return
	}
	parts := make([]string, 0, len(deps))
	for _, d := range deps {
		parts = append(parts, d.String())
	}
	fmt.Fprintf(buf, "%c:%s\n", key, strings.Join(parts, " "))
}

// IndexArchive creates an APKINDEX.tar.gz holding DESCRIPTION and APKINDEX.
// With a signer, a signature segment over the index is prepended, as
// abuild-sign does.
func IndexArchive(description string, pkgs []*apk.Package, s signer.RSASigner, keyName string) ([]byte, error) {
	var index bytes.Buffer
	if err := WriteAPKINDEX(&index, pkgs); err != nil {
		return nil, err
	}

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	if err := addTarFile(tw, "DESCRIPTION", []byte(description)); err != nil {
		return nil, err
	}
	if err := addTarFile(tw, "APKINDEX", index.Bytes()); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	indexGz, err := utils.GzipCompressLevel(tarBuf.Bytes(), 9)
	if err != nil {
		return nil, fmt.Errorf("failed to compress index: %w", err)
	}

	if s == nil {
		return indexGz, nil
	}

	signature, err := s.SignRSA(indexGz)
	if err != nil {
		return nil, fmt.Errorf("failed to sign APKINDEX: %w", err)
	}
	var sigBuf bytes.Buffer
	sw := tar.NewWriter(&sigBuf)
	name := fmt.Sprintf(".SIGN.%s.%s", s.Algorithm(), keyName)
	if err := addTarFile(sw, name, signature); err != nil {
		return nil, err
	}
	// The signature segment ends without end-of-archive blocks.
	if err := sw.Flush(); err != nil {
		return nil, err
	}
	sigGz, err := utils.GzipCompressLevel(sigBuf.Bytes(), 9)
	if err != nil {
		return nil, fmt.Errorf("failed to compress signature: %w", err)
	}
	logrus.Debugf("signed APKINDEX with %s", name)

	return append(sigGz, indexGz...), nil
}

// addTarFile adds a file to a tar archive
func addTarFile(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(data)),
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tw, bytes.NewReader(data)); err != nil {
		return err
	}

	return nil
}
