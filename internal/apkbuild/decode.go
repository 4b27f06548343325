package apkbuild

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ralt/alpkit/internal/models"
)

// Fields are the variables captured from an evaluated descriptor.
type Fields struct {
	Scalars map[string]string
	Lists   map[string][]string
	// Unset lists the variables the descriptor never assigned.
	Unset []string
}

// Scalar returns a single-valued variable.
func (f Fields) Scalar(name string) (string, bool) {
	v, ok := f.Scalars[name]
	return v, ok
}

// List returns a list variable, or nil if it is unset.
func (f Fields) List(name string) []string {
	return f.Lists[name]
}

// DecodeOutput un-frames the output of the evaluation wrapper. Output that
// does not end with the completion trailer is rejected.
func DecodeOutput(raw []byte) (Fields, error) {
	d := &decoder{buf: raw}
	fields := Fields{
		Scalars: make(map[string]string),
		Lists:   make(map[string][]string),
	}

	for {
		if d.pos >= len(d.buf) {
			return fields, d.errorf("output ends without completion marker")
		}
		kind, args, err := d.header()
		if err != nil {
			return fields, err
		}

		switch kind {
		case "Z":
			if len(args) != 0 || d.pos != len(d.buf) {
				return fields, d.errorf("unexpected data after completion marker")
			}
			return fields, nil
		case "U":
			if len(args) != 1 {
				return fields, d.errorf("bad unset frame")
			}
			fields.Unset = append(fields.Unset, args[0])
		case "S":
			if len(args) != 2 {
				return fields, d.errorf("bad scalar frame")
			}
			value, err := d.body(args[1])
			if err != nil {
				return fields, err
			}
			fields.Scalars[args[0]] = value
		case "L":
			if len(args) != 2 {
				return fields, d.errorf("bad list frame")
			}
			count, err := strconv.Atoi(args[1])
			if err != nil || count < 0 {
				return fields, d.errorf("bad item count %q", args[1])
			}
			items := make([]string, 0, count)
			for i := 0; i < count; i++ {
				kind, itemArgs, err := d.header()
				if err != nil {
					return fields, err
				}
				if kind != "I" || len(itemArgs) != 1 {
					return fields, d.errorf("expected item %d of %s", i, args[0])
				}
				item, err := d.body(itemArgs[0])
				if err != nil {
					return fields, err
				}
				items = append(items, item)
			}
			fields.Lists[args[0]] = items
		default:
			return fields, d.errorf("unknown frame %q", kind)
		}
	}
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) errorf(format string, args ...any) error {
	return models.NewError(models.ErrEvaluationFailed,
		fmt.Errorf("malformed evaluator output at byte %d: %s", d.pos, fmt.Sprintf(format, args...)))
}

// header reads one "<kind> <arg>..." line.
func (d *decoder) header() (string, []string, error) {
	end := bytes.IndexByte(d.buf[d.pos:], '\n')
	if end < 0 {
		return "", nil, d.errorf("unterminated frame header")
	}
	parts := bytes.Fields(d.buf[d.pos : d.pos+end])
	if len(parts) == 0 {
		return "", nil, d.errorf("empty frame header")
	}
	d.pos += end + 1

	args := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		args = append(args, string(p))
	}
	return string(parts[0]), args, nil
}

// body reads a length-prefixed value and its terminating newline.
func (d *decoder) body(length string) (string, error) {
	n, err := strconv.Atoi(length)
	if err != nil || n < 0 {
		return "", d.errorf("bad length %q", length)
	}
	if len(d.buf)-d.pos < n+1 || d.buf[d.pos+n] != '\n' {
		return "", d.errorf("value of %d bytes is cut short", n)
	}
	value := string(d.buf[d.pos : d.pos+n])
	d.pos += n + 1
	return value, nil
}
