package apk

import (
	"strings"

	"github.com/ralt/alpkit/internal/models"
)

const signaturePrefix = ".SIGN."

// isSignatureEntry reports whether an entry name belongs to the signature
// segment.
func isSignatureEntry(name string) bool {
	return strings.HasPrefix(name, signaturePrefix)
}

// parseSignatureName splits ".SIGN.<alg>.<keyname>" into its parts.
func parseSignatureName(name string) (alg, keyName string, ok bool) {
	rest, found := strings.CutPrefix(name, signaturePrefix)
	if !found {
		return "", "", false
	}
	alg, keyName, found = strings.Cut(rest, ".")
	if !found || alg == "" || keyName == "" {
		return "", "", false
	}
	return alg, keyName, true
}

// readSignature converts a signature entry, or reports why it cannot.
func readSignature(name string, content []byte, warnings *models.Warnings) (models.SignatureInfo, bool) {
	alg, keyName, ok := parseSignatureName(name)
	if !ok {
		warnings.Addf(models.WarnMalformedControlEntry, name, 0, "not a .SIGN.<alg>.<keyname> entry")
		return models.SignatureInfo{}, false
	}
	return models.SignatureInfo{Algorithm: alg, KeyName: keyName, Raw: content}, true
}
