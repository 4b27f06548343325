package utils

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ralt/alpkit/internal/models"
)

// CalculateChecksums calculates all checksums for a file in a single pass
func CalculateChecksums(path string) (*models.Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReaderChecksums(f)
}

// ReaderChecksums hashes everything r yields.
func ReaderChecksums(r io.Reader) (*models.Checksum, error) {
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	multiWriter := io.MultiWriter(sha1Hash, sha256Hash, sha512Hash)

	size, err := io.Copy(multiWriter, r)
	if err != nil {
		return nil, err
	}

	return &models.Checksum{
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		SHA512: hex.EncodeToString(sha512Hash.Sum(nil)),
		Size:   size,
	}, nil
}

// PullChecksum converts a hex SHA-1 into the "Q1"-prefixed base64 form
// used by APKINDEX files.
func PullChecksum(sha1Hex string) (string, error) {
	raw, err := hex.DecodeString(sha1Hex)
	if err != nil {
		return "", fmt.Errorf("invalid sha1 %q: %w", sha1Hex, err)
	}
	return "Q1" + base64.StdEncoding.EncodeToString(raw), nil
}
