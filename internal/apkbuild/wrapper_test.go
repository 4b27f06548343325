package apkbuild

import (
	"bytes"
	"strings"
	"testing"

	"mvdan.cc/sh/v3/syntax"
)

func TestWrapperIsPOSIX(t *testing.T) {
	script := buildWrapper([]string{"_commit", "giturl"}, DefaultMaxOutputBytes)
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(bytes.NewReader(script), "evaluate.sh"); err != nil {
		t.Fatalf("Wrapper is not valid POSIX sh: %v", err)
	}
}

func TestWrapperNeverCallsBuildFunctions(t *testing.T) {
	f, err := syntax.NewParser().Parse(bytes.NewReader(buildWrapper(nil, 0)), "evaluate.sh")
	if err != nil {
		t.Fatalf("Failed to parse wrapper: %v", err)
	}

	forbidden := map[string]bool{
		"prepare": true, "build": true, "check": true, "package": true,
		"unpack": true, "fetch": true,
	}
	syntax.Walk(f, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		if name := call.Args[0].Lit(); forbidden[name] {
			t.Errorf("Wrapper calls %s at %s", name, call.Pos())
		}
		return true
	})
}

func TestWrapperExtraVars(t *testing.T) {
	script := string(buildWrapper([]string{"_commit", "pkgname", "bad-name", "$(id)", "_commit"}, 0))

	if n := strings.Count(script, "__alpkit_scalar _commit\n"); n != 1 {
		t.Errorf("Expected _commit to be emitted once, got %d", n)
	}
	if n := strings.Count(script, "__alpkit_scalar pkgname\n"); n != 1 {
		t.Errorf("Expected pkgname to be emitted once, got %d", n)
	}
	for _, bad := range []string{"bad-name", "$(id)"} {
		if strings.Contains(script, "__alpkit_scalar "+bad) {
			t.Errorf("Expected %q to be left out", bad)
		}
	}
	if !strings.HasSuffix(script, "command printf 'Z\\n'\n") {
		t.Error("Expected wrapper to end with the completion marker")
	}
}

func TestWrapperFileLimit(t *testing.T) {
	tests := []struct {
		limit int64
		want  string
	}{
		{1, "ulimit -f 1 2>/dev/null\n"},
		{512, "ulimit -f 1 2>/dev/null\n"},
		{513, "ulimit -f 2 2>/dev/null\n"},
		{DefaultMaxOutputBytes + 1, "ulimit -f 32769 2>/dev/null\n"},
	}
	for _, tt := range tests {
		script := string(buildWrapper(nil, tt.limit))
		if !strings.Contains(script, tt.want) {
			t.Errorf("buildWrapper(nil, %d) does not contain %q", tt.limit, tt.want)
		}
		if !strings.Contains(script, "trap '' XFSZ\n") {
			t.Errorf("buildWrapper(nil, %d) does not ignore XFSZ", tt.limit)
		}
		if strings.Index(script, "ulimit -f") > strings.Index(script, `. ./"$APKBUILD"`) {
			t.Errorf("buildWrapper(nil, %d) sets the file limit after sourcing", tt.limit)
		}
	}

	if script := string(buildWrapper(nil, 0)); strings.Contains(script, "ulimit") {
		t.Error("Expected no file limit when none is configured")
	}
}

func TestWrapperClearsTraps(t *testing.T) {
	script := string(buildWrapper(nil, 0))
	source := strings.Index(script, `. ./"$APKBUILD"`)
	reset := strings.Index(script, "trap - EXIT HUP INT TERM\n")
	if reset < source {
		t.Errorf("Expected traps to be reset after sourcing (source at %d, reset at %d)", source, reset)
	}
	if end := strings.Index(script, "command printf 'Z\\n'"); end < reset {
		t.Errorf("Expected traps to be reset before the trailer (reset at %d, trailer at %d)", reset, end)
	}
}
