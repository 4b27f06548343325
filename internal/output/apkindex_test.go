package output

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/alpkit/internal/apk"
	"github.com/ralt/alpkit/internal/apktest"
	"github.com/ralt/alpkit/internal/archive"
	"github.com/ralt/alpkit/internal/signer"
	"github.com/ralt/alpkit/internal/stream"
	"github.com/ralt/alpkit/internal/utils"
)

const zlibPKGINFO = `pkgname = zlib
pkgver = 1.3.1-r1
pkgdesc = A compression/decompression Library
url = https://zlib.net/
builddate = 1700000000
size = 110592
arch = x86_64
origin = zlib
commit = 0123456789abcdef0123456789abcdef01234567
maintainer = Natanael Copa <ncopa@alpinelinux.org>
license = Zlib
depend = so:libc.musl-x86_64.so.1
depend = !zlib-legacy
provides = so:libz.so.1=1.3.1
provider_priority = 10
`

const busyboxPKGINFO = `pkgname = busybox
pkgver = 1.36.1-r2
arch = x86_64
size = 950272
license = GPL-2.0-only
install_if = busybox-base=1.36.1-r2 openrc
replaces = busybox-initscripts
replaces_priority = 5
`

func loadPackage(t *testing.T, pkginfo string) *apk.Package {
	t.Helper()
	data := (&apktest.Builder{
		PKGINFO: pkginfo,
		Data:    []apktest.File{apktest.Dir("usr/")},
	}).MustBuild()

	pkg, err := apk.Load(bytes.NewReader(data), apk.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to load package: %v", err)
	}
	checksums, err := utils.ReaderChecksums(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to hash package: %v", err)
	}
	pkg.Checksums = checksums
	return pkg
}

func TestWriteAPKINDEX(t *testing.T) {
	zlib := loadPackage(t, zlibPKGINFO)
	busybox := loadPackage(t, busyboxPKGINFO)

	var buf bytes.Buffer
	if err := WriteAPKINDEX(&buf, []*apk.Package{zlib, busybox}); err != nil {
		t.Fatalf("Failed to write APKINDEX: %v", err)
	}

	pull := func(pkg *apk.Package) string {
		c, err := utils.PullChecksum(pkg.ControlSHA1())
		if err != nil {
			t.Fatalf("Failed to encode checksum: %v", err)
		}
		return c
	}
	size := func(pkg *apk.Package) string {
		return strconv.FormatInt(pkg.Checksums.Size, 10)
	}

	want := "C:" + pull(busybox) + "\n" +
		"P:busybox\n" +
		"V:1.36.1-r2\n" +
		"A:x86_64\n" +
		"S:" + size(busybox) + "\n" +
		"I:950272\n" +
		"L:GPL-2.0-only\n" +
		"i:busybox-base=1.36.1-r2 openrc\n" +
		"r:busybox-initscripts\n" +
		"q:5\n" +
		"\n" +
		"C:" + pull(zlib) + "\n" +
		"P:zlib\n" +
		"V:1.3.1-r1\n" +
		"A:x86_64\n" +
		"S:" + size(zlib) + "\n" +
		"I:110592\n" +
		"T:A compression/decompression Library\n" +
		"U:https://zlib.net/\n" +
		"L:Zlib\n" +
		"o:zlib\n" +
		"m:Natanael Copa <ncopa@alpinelinux.org>\n" +
		"t:1700000000\n" +
		"c:0123456789abcdef0123456789abcdef01234567\n" +
		"D:so:libc.musl-x86_64.so.1 !zlib-legacy\n" +
		"p:so:libz.so.1=1.3.1\n" +
		"k:10\n" +
		"\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("APKINDEX mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexArchiveSigned(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	s := signer.NewAlpineRSASignerFromKey(key, false)

	pkg := loadPackage(t, zlibPKGINFO)
	data, err := IndexArchive("v3.20", []*apk.Package{pkg}, s, "test@example.org-00000000.rsa.pub")
	if err != nil {
		t.Fatalf("Failed to build index archive: %v", err)
	}

	d := stream.NewDemuxer(bytes.NewReader(data))

	sigSeg, err := d.Next()
	if err != nil {
		t.Fatalf("Failed to open signature segment: %v", err)
	}
	sigEntry, err := archive.NewReader(sigSeg).Next()
	if err != nil {
		t.Fatalf("Failed to read signature entry: %v", err)
	}
	if sigEntry.Path != ".SIGN.RSA.test@example.org-00000000.rsa.pub" {
		t.Errorf("Unexpected signature entry %q", sigEntry.Path)
	}

	indexSeg, err := d.Next()
	if err != nil {
		t.Fatalf("Failed to open index segment: %v", err)
	}
	digest := sha1.Sum(data[indexSeg.Offset:])
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], sigEntry.Content); err != nil {
		t.Errorf("Signature does not verify: %v", err)
	}

	files := map[string]string{}
	ar := archive.NewReader(indexSeg)
	for {
		entry, err := ar.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read index entry: %v", err)
		}
		files[entry.Path] = string(entry.Content)
	}
	if files["DESCRIPTION"] != "v3.20" {
		t.Errorf("Unexpected DESCRIPTION %q", files["DESCRIPTION"])
	}
	if !strings.Contains(files["APKINDEX"], "P:zlib\nV:1.3.1-r1\n") {
		t.Errorf("APKINDEX is missing the package record:\n%s", files["APKINDEX"])
	}
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected two segments, got error %v", err)
	}
}

func TestIndexArchiveUnsigned(t *testing.T) {
	data, err := IndexArchive("empty", nil, nil, "")
	if err != nil {
		t.Fatalf("Failed to build index archive: %v", err)
	}
	plain, err := utils.GzipDecompress(data)
	if err != nil {
		t.Fatalf("Index is not a single gzip stream: %v", err)
	}
	if !bytes.Contains(plain, []byte("DESCRIPTION")) {
		t.Error("Expected DESCRIPTION entry")
	}
}
