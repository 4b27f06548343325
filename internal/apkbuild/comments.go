package apkbuild

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ralt/alpkit/internal/models"
	"github.com/sirupsen/logrus"
	"mvdan.cc/sh/v3/syntax"
)

// Contributor comments are only looked for in the file header.
const contributorLines = 10

var funcDeclRe = regexp.MustCompile(`(?m)^[ \t]*(?:function[ \t]+)?[A-Za-z_][A-Za-z0-9_]*[ \t]*\([ \t]*\)`)

// commentAttribute returns the value of a "# <name> <value>" comment line.
func commentAttribute(name, line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "# ")
	if !ok {
		return "", false
	}
	rest, ok = strings.CutPrefix(strings.TrimLeft(rest, " \t"), name)
	if !ok {
		return "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	return rest, rest != ""
}

func parseMaintainer(lines []string) string {
	for _, line := range lines {
		if v, ok := commentAttribute("Maintainer:", line); ok {
			return v
		}
	}
	return ""
}

func parseContributors(lines []string) []string {
	contributors := []string{}
	for i, line := range lines {
		if i >= contributorLines {
			break
		}
		if v, ok := commentAttribute("Contributor:", line); ok {
			contributors = append(contributors, v)
		}
	}
	return contributors
}

// firstFunctionLine returns the 1-based line of the first function
// definition, or 0 if there is none.
func firstFunctionLine(text []byte) int {
	f, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(bytes.NewReader(text), "APKBUILD")
	if err != nil {
		logrus.Debugf("falling back to pattern search for functions: %v", err)
		loc := funcDeclRe.FindIndex(text)
		if loc == nil {
			return 0
		}
		return bytes.Count(text[:loc[0]], []byte("\n")) + 1
	}

	line := 0
	syntax.Walk(f, func(node syntax.Node) bool {
		if fn, ok := node.(*syntax.FuncDecl); ok {
			if l := int(fn.Pos().Line()); line == 0 || l < line {
				line = l
			}
			return false
		}
		return true
	})
	return line
}

// parseSecfixes reads the "# secfixes:" comment block. Only lines before
// limit (1-based, 0 for no limit) are considered. Malformed lines are
// reported and skipped.
func parseSecfixes(lines []string, limit int, warnings *models.Warnings) []models.Secfix {
	secfixes := []models.Secfix{}

	start := -1
	for i, line := range lines {
		if limit > 0 && i+1 >= limit {
			return secfixes
		}
		if strings.HasPrefix(line, "# secfixes:") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return secfixes
	}

	current := -1
	for i := start; i < len(lines); i++ {
		lineNo := i + 1
		if limit > 0 && lineNo >= limit {
			break
		}
		body, ok := strings.CutPrefix(lines[i], "#   ")
		if !ok {
			break
		}
		entry := body
		if j := strings.Index(entry, " #"); j >= 0 {
			entry = entry[:j]
		}
		entry = strings.TrimSpace(entry)

		switch {
		case strings.HasPrefix(entry, "- "):
			id := strings.TrimSpace(entry[2:])
			if current < 0 {
				warnings.Addf(models.WarnMalformedSecfix, "secfixes", lineNo,
					"fix %q is not under a version", id)
				continue
			}
			secfixes[current].Fixes = append(secfixes[current].Fixes, id)
		case strings.HasSuffix(entry, ":") && !strings.ContainsAny(entry, " \t"):
			version := strings.TrimSuffix(entry, ":")
			if !pkgverRelOrZeroRe.MatchString(version) {
				warnings.Addf(models.WarnInvalidField, "secfixes", lineNo,
					"%q is not a version-release", version)
			}
			secfixes = append(secfixes, models.Secfix{Version: version, Fixes: []string{}})
			current = len(secfixes) - 1
		default:
			warnings.Addf(models.WarnMalformedSecfix, "secfixes", lineNo, "cannot parse %q", body)
			current = -1
		}
	}
	return secfixes
}
