package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Mode holds permission bits (including setuid, setgid and sticky). It is
// rendered as an octal string such as "0755".
type Mode uint32

func (m Mode) String() string {
	return fmt.Sprintf("0%o", uint32(m))
}

// MarshalJSON implements json.Marshaler.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid mode %q: expected octal number", s)
	}
	*m = Mode(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// JSONSchema describes the serialized form of a Mode.
func (m Mode) JSONSchema() map[string]any {
	return map[string]any{"type": "string", "pattern": "^0[0-7]+$"}
}
