package apkbuild

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/alpkit/internal/models"
)

func TestParseMaintainer(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"\n# sample\n# Maintainer: Kevin Flynn\n", "Kevin Flynn"},
		{"#   Maintainer:  Kevin Flynn  \n", "Kevin Flynn"},
		{"# Maintainer: Flynn <flynn@encom.com>\n", "Flynn <flynn@encom.com>"},
		{"#Maintainer: No One\n", ""},
		{"# Maintainer:\n", ""},
		{"# Some comment\n\npkgname=sample\n", ""},
	}

	for _, tt := range tests {
		got := parseMaintainer(strings.Split(tt.input, "\n"))
		if got != tt.want {
			t.Errorf("parseMaintainer(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseContributors(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"\n# sample\n#  Contributor: Kevin Flynn\n", []string{"Kevin Flynn"}},
		{"# Contributor: KF\n# Contributor: AB\n", []string{"KF", "AB"}},
		{"# Contributor: KF\n\n# sample\n# Contributor: AB\n", []string{"KF", "AB"}},
		{"# Maintainer: No One", []string{}},
		{strings.Repeat("\n", 10) + "# Contributor: Too Late\n", []string{}},
	}

	for _, tt := range tests {
		got := parseContributors(strings.Split(tt.input, "\n"))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parseContributors(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestFirstFunctionLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"none", "pkgname=sample\n", 0},
		{"posix", "pkgname=sample\n\nbuild() {\n\tmake\n}\n", 3},
		{"keyword", "pkgname=sample\nfunction build {\n\tmake\n}\n", 2},
		{"first of many", "a=1\nprepare() { :; }\nbuild() { :; }\n", 2},
		{"not in comment", "# build() {\npkgname=sample\npackage() {\n\t:\n}\n", 3},
		{"unparsable", "pkgname=sample\nfoo=$(\nbuild() {\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstFunctionLine([]byte(tt.input)); got != tt.want {
				t.Errorf("firstFunctionLine() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseSecfixes(t *testing.T) {
	input := `# Maintainer: me
pkgname=sample

# secfixes:
#   1.1-r0:
#   - CVE-2022-1236  # comment
#   1.0-r0:
#     - CVE-2022-1235
#      -  CVE-2022-1234
#
`
	var warnings models.Warnings
	got := parseSecfixes(strings.Split(input, "\n"), 0, &warnings)
	want := []models.Secfix{
		{Version: "1.1-r0", Fixes: []string{"CVE-2022-1236"}},
		{Version: "1.0-r0", Fixes: []string{"CVE-2022-1235", "CVE-2022-1234"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseSecfixes() mismatch (-want +got):\n%s", diff)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
}

func TestParseSecfixesNone(t *testing.T) {
	var warnings models.Warnings
	got := parseSecfixes([]string{"# Maintainer: me", "pkgname=sample"}, 0, &warnings)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil secfixes, got %#v", got)
	}
}

func TestParseSecfixesMalformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []models.Secfix
		kinds    []models.WarningKind
		warnLine int
	}{
		{
			name:     "fix without version",
			input:    "# secfixes:\n#   - CVE-2022-1236\n#   - CVE-2022-1235\n",
			want:     []models.Secfix{},
			kinds:    []models.WarningKind{models.WarnMalformedSecfix, models.WarnMalformedSecfix},
			warnLine: 2,
		},
		{
			name:  "version without colon",
			input: "# secfixes:\n#   1.2-r0:\n#     - CVE-2022-1235\n#   1.1-r0\n#     - CVE-2022-1234\n",
			want: []models.Secfix{
				{Version: "1.2-r0", Fixes: []string{"CVE-2022-1235"}},
			},
			kinds:    []models.WarningKind{models.WarnMalformedSecfix, models.WarnMalformedSecfix},
			warnLine: 4,
		},
		{
			name:  "bad version",
			input: "# secfixes:\n#   1.2:\n#     - CVE-2022-1235\n#   0:\n#     - CVE-2020-0001\n",
			want: []models.Secfix{
				{Version: "1.2", Fixes: []string{"CVE-2022-1235"}},
				{Version: "0", Fixes: []string{"CVE-2020-0001"}},
			},
			kinds:    []models.WarningKind{models.WarnInvalidField},
			warnLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings models.Warnings
			got := parseSecfixes(strings.Split(tt.input, "\n"), 0, &warnings)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseSecfixes() mismatch (-want +got):\n%s", diff)
			}
			var kinds []models.WarningKind
			for _, w := range warnings {
				kinds = append(kinds, w.Kind)
			}
			if diff := cmp.Diff(tt.kinds, kinds); diff != "" {
				t.Errorf("Warning kinds mismatch (-want +got):\n%s", diff)
			}
			if len(warnings) > 0 && warnings[0].Line != tt.warnLine {
				t.Errorf("Expected first warning on line %d, got %d", tt.warnLine, warnings[0].Line)
			}
		})
	}
}

func TestParseSecfixesStopsAtFunction(t *testing.T) {
	input := `pkgname=sample

build() {
	cat <<-EOF
# secfixes:
#   1.0-r0:
#     - CVE-2022-1235
	EOF
}
`
	lines := strings.Split(input, "\n")
	var warnings models.Warnings
	got := parseSecfixes(lines, firstFunctionLine([]byte(input)), &warnings)
	if len(got) != 0 {
		t.Errorf("Expected secfixes inside a function to be ignored, got %v", got)
	}
}
