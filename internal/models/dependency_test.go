package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDependency(t *testing.T) {
	tests := []struct {
		in   string
		want Dependency
	}{
		{"ruby>=3.0", Dependency{Name: "ruby", Op: ">=", Version: "3.0"}},
		{"!sample-legacy", Dependency{Name: "sample-legacy", Conflict: true}},
		{"zlib-dev", Dependency{Name: "zlib-dev"}},
		{"so:libc.musl-x86_64.so.1", Dependency{Name: "so:libc.musl-x86_64.so.1"}},
		{"busybox=1.36.1-r2", Dependency{Name: "busybox", Op: "=", Version: "1.36.1-r2"}},
		{"python3~=3.12", Dependency{Name: "python3", Op: "~=", Version: "3.12"}},
		{"musl<1.3", Dependency{Name: "musl", Op: "<", Version: "1.3"}},
		{"linux-lts><6.6", Dependency{Name: "linux-lts", Op: "><", Version: "6.6"}},
		{"!openssl<3", Dependency{Name: "openssl", Op: "<", Version: "3", Conflict: true}},
		{"foo@testing", Dependency{Name: "foo", RepoPin: "testing"}},
		{"foo>1.0@edge", Dependency{Name: "foo", Op: ">", Version: "1.0", RepoPin: "edge"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDependency(tt.in)
			if err != nil {
				t.Fatalf("ParseDependency(%q) returned error: %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseDependency(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestParseDependencyInvalid(t *testing.T) {
	for _, in := range []string{"", "!", ">=1.0", "foo>=", "foo=>1", "foo@", "a!b"} {
		if dep, err := ParseDependency(in); err == nil {
			t.Errorf("ParseDependency(%q) = %+v, expected error", in, dep)
		}
	}
}

func TestParseDependencies(t *testing.T) {
	var warnings Warnings
	deps := ParseDependencies("depends", []string{"a", "b>=", "a"}, &warnings)

	want := []Dependency{{Name: "a"}, {Name: "a"}}
	if diff := cmp.Diff(want, deps); diff != "" {
		t.Errorf("ParseDependencies() mismatch (-want +got):\n%s", diff)
	}
	if len(warnings) != 1 || warnings[0].Kind != WarnInvalidField || warnings[0].Field != "depends" {
		t.Errorf("Unexpected warnings %v", warnings)
	}
}

func TestWithPriority(t *testing.T) {
	deps := []Dependency{{Name: "a"}, {Name: "b"}}
	if got := WithPriority(deps, nil); got[0].Priority != nil {
		t.Errorf("Expected no priority, got %d", *got[0].Priority)
	}

	p := uint32(100)
	got := WithPriority(deps, &p)
	for _, d := range got {
		if d.Priority == nil || *d.Priority != 100 {
			t.Errorf("Expected priority 100 on %s", d.Name)
		}
	}
	if deps[0].Priority != nil {
		t.Error("WithPriority modified its input")
	}
	p = 5
	if *got[0].Priority != 100 {
		t.Error("Priority aliases the caller's value")
	}
}
