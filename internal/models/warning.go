package models

import "fmt"

// WarningKind classifies a soft validation finding.
type WarningKind string

const (
	WarnUnsupportedEntryKind  WarningKind = "unsupported-entry-kind"
	WarnMalformedControlEntry WarningKind = "malformed-control-entry"
	WarnInvalidPkgInfoLine    WarningKind = "invalid-pkginfo-line"
	WarnInvalidField          WarningKind = "invalid-field"
	WarnChecksumCountMismatch WarningKind = "checksum-count-mismatch"
	WarnChecksumNameMismatch  WarningKind = "checksum-name-mismatch"
	WarnMalformedSecfix       WarningKind = "malformed-secfix"
)

// Warning is a non-fatal finding reported alongside a best-effort result.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Field   string      `json:"field,omitempty" yaml:"field,omitempty"`
	Line    int         `json:"line,omitempty" yaml:"line,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Field != "" && w.Line > 0:
		return fmt.Sprintf("%s: %s (line %d): %s", w.Kind, w.Field, w.Line, w.Message)
	case w.Field != "":
		return fmt.Sprintf("%s: %s: %s", w.Kind, w.Field, w.Message)
	case w.Line > 0:
		return fmt.Sprintf("%s (line %d): %s", w.Kind, w.Line, w.Message)
	default:
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
}

// Warnings collects findings in the order they were reported.
type Warnings []Warning

// Addf appends a formatted warning.
func (ws *Warnings) Addf(kind WarningKind, field string, line int, format string, args ...any) {
	*ws = append(*ws, Warning{
		Kind:    kind,
		Field:   field,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// OfKind returns the warnings of the given kind.
func (ws Warnings) OfKind(kind WarningKind) Warnings {
	var out Warnings
	for _, w := range ws {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
