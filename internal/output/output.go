// Package output renders extracted metadata.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatAPKINDEX Format = "apkindex"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatAPKINDEX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, yaml or apkindex)", s)
	}
}

// Write renders v as JSON or YAML. APKINDEX output is written with
// WriteAPKINDEX, as it only applies to package containers.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q cannot render %T", format, v)
	}
}
