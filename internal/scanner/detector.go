package scanner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// descriptorName is the fixed file name of a build descriptor.
const descriptorName = "APKBUILD"

// Gzip magic bytes (APK containers are concatenated gzip streams)
var gzipMagic = []byte{0x1F, 0x8B}

// DetectType determines the input type based on the file name and, for
// containers, the magic bytes
func DetectType(path string) (InputType, error) {
	if filepath.Base(path) == descriptorName {
		return TypeApkbuild, nil
	}

	if filepath.Ext(path) != ".apk" {
		return TypeUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, len(gzipMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && n == 0 && err != io.EOF {
		return TypeUnknown, err
	}

	// Check for Alpine APK (gzip stream with .apk extension)
	if bytes.Equal(header[:n], gzipMagic) {
		return TypeApk, nil
	}

	return TypeUnknown, nil
}
