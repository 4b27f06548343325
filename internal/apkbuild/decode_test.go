package apkbuild

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/alpkit/internal/models"
)

func TestDecodeOutput(t *testing.T) {
	raw := "U pcprefix\n" +
		"S pkgname 6\nsample\n" +
		"S pkgdesc 11\ntwo\nlines \n\n" +
		"S url 0\n\n" +
		"L depends 2\nI 4\nruby\nI 14\n!sample-legacy\n" +
		"L options 0\n" +
		"Z\n"

	fields, err := DecodeOutput([]byte(raw))
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}

	want := Fields{
		Scalars: map[string]string{
			"pkgname": "sample",
			"pkgdesc": "two\nlines \n",
			"url":     "",
		},
		Lists: map[string][]string{
			"depends": {"ruby", "!sample-legacy"},
			"options": {},
		},
		Unset: []string{"pcprefix"},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("DecodeOutput() mismatch (-want +got):\n%s", diff)
	}

	if _, ok := fields.Scalar("pcprefix"); ok {
		t.Error("Expected pcprefix to be unset")
	}
	if fields.List("arch") != nil {
		t.Error("Expected missing list to be nil")
	}
}

func TestDecodeOutputMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "without completion marker"},
		{"no trailer", "S pkgname 6\nsample\n", "without completion marker"},
		{"data after trailer", "Z\nS pkgname 6\nsample\n", "after completion marker"},
		{"trailer with args", "Z 1\n", "after completion marker"},
		{"short value", "S pkgname 10\nsample\nZ\n", "cut short"},
		{"value without newline", "S pkgname 3\nsampleZ\n", "cut short"},
		{"bad length", "S pkgname x\nsample\nZ\n", "bad length"},
		{"negative count", "L depends -1\nZ\n", "bad item count"},
		{"missing item", "L depends 2\nI 4\nruby\nZ\n", "expected item 1"},
		{"unknown frame", "X foo\nZ\n", "unknown frame"},
		{"unterminated header", "S pkgname", "unterminated"},
		{"blank header", "\nZ\n", "empty frame header"},
		{"scalar arity", "S pkgname\nZ\n", "bad scalar frame"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOutput([]byte(tt.raw))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !models.IsType(err, models.ErrEvaluationFailed) {
				t.Errorf("Expected EvaluationFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error to contain %q, got %q", tt.want, err.Error())
			}
		})
	}
}
