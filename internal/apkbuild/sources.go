package apkbuild

import (
	"strings"

	"github.com/ralt/alpkit/internal/models"
)

// parseSource splits a source entry into its local file name and URI.
// Entries are "name::uri", a URL or a path relative to the descriptor.
func parseSource(item string) models.Source {
	var src models.Source
	if name, uri, ok := strings.Cut(item, "::"); ok {
		src.Name, src.URI = name, uri
	} else if i := strings.LastIndexByte(item, '/'); i >= 0 {
		src.Name, src.URI = item[i+1:], item
	} else {
		src.Name, src.URI = item, item
	}
	src.Remote = strings.Contains(src.URI, "://")
	return src
}

// checksumLine is one line of sha512sums or sha256sums.
type checksumLine struct {
	hash string
	name string
}

func parseChecksumLines(lines []string) []checksumLine {
	out := make([]checksumLine, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cl := checksumLine{hash: fields[0]}
		if len(fields) > 1 {
			cl.name = fields[len(fields)-1]
		}
		out = append(out, cl)
	}
	return out
}

// pairSources pairs sources with checksum lines by position. A checksum
// line naming a different file than its source, and checksum lists whose
// length differs from the source list, are reported as warnings.
func pairSources(items, sha512sums, sha256sums []string, warnings *models.Warnings) []models.Source {
	sources := make([]models.Source, 0, len(items))
	for _, item := range items {
		sources = append(sources, parseSource(item))
	}

	attach := func(field string, lines []checksumLine, valid func(string) bool, set func(*models.Source, string)) {
		if len(lines) > 0 && len(sources) > 0 && len(lines) != len(sources) {
			warnings.Addf(models.WarnChecksumCountMismatch, field, 0,
				"%d checksums for %d sources", len(lines), len(sources))
		}
		for i := range sources {
			if i >= len(lines) {
				break
			}
			cl := lines[i]
			if cl.name != "" && cl.name != sources[i].Name {
				warnings.Addf(models.WarnChecksumNameMismatch, field, 0,
					"checksum %d is for %q, source is %q", i+1, cl.name, sources[i].Name)
			}
			if !valid(cl.hash) {
				warnings.Addf(models.WarnInvalidField, field, 0,
					"checksum %d for %q is malformed", i+1, sources[i].Name)
			}
			set(&sources[i], cl.hash)
		}
	}

	attach("sha512sums", parseChecksumLines(sha512sums), sha512Re.MatchString,
		func(s *models.Source, h string) { s.SHA512 = h })
	attach("sha256sums", parseChecksumLines(sha256sums), sha256Re.MatchString,
		func(s *models.Source, h string) { s.SHA256 = h })

	return sources
}
