package utils

import (
	"fmt"

	"github.com/ralt/alpkit/internal/models"
)

// PackageIdentity returns the identifier apk uses to tell packages apart
func PackageIdentity(info models.PackageInfo) string {
	return fmt.Sprintf("%s:%s:%s", info.Name, info.Version, info.Arch)
}

// DetectDuplicates returns the identities that occur more than once, in the
// order they were first repeated.
func DetectDuplicates(infos []models.PackageInfo) []string {
	seen := make(map[string]int)
	var dups []string
	for _, info := range infos {
		id := PackageIdentity(info)
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
