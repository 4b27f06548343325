package scanner

import "context"

// InputType represents the kind of input file
type InputType int

const (
	TypeUnknown InputType = iota
	TypeApk
	TypeApkbuild
)

// String returns the string representation of InputType
func (t InputType) String() string {
	switch t {
	case TypeApk:
		return "apk"
	case TypeApkbuild:
		return "apkbuild"
	default:
		return "unknown"
	}
}

// MarshalText renders the type by name in json and yaml output.
func (t InputType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ScannedFile represents an input file found during scanning
type ScannedFile struct {
	Path string    `json:"path" yaml:"path"`
	Type InputType `json:"type" yaml:"type"`
	Size int64     `json:"size" yaml:"size"`
}

// Scanner interface for detecting and scanning inputs
type Scanner interface {
	// Scan recursively scans a directory for package containers and
	// build descriptors
	Scan(ctx context.Context, dir string) ([]ScannedFile, error)

	// DetectType determines the input type of a file
	DetectType(path string) (InputType, error)
}
