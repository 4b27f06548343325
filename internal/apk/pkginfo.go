package apk

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/ralt/alpkit/internal/models"
)

var releaseSuffix = regexp.MustCompile(`-r([0-9]+)$`)

// parsePKGINFO parses the .PKGINFO file of the control segment. Malformed
// lines and values are reported as warnings, never as errors.
func parsePKGINFO(data []byte, warnings *models.Warnings) (models.PackageInfo, error) {
	var (
		info                      models.PackageInfo
		provides, replaces        []string
		depends, installIf        []string
		providerPrio, replacePrio *uint32
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, " = ")
		if !ok {
			warnings.Addf(models.WarnInvalidPkgInfoLine, "", lineNo, "missing ' = ' in %q", line)
			continue
		}

		switch key {
		case "pkgname":
			info.Name = value
		case "pkgver":
			info.Version = value
			if m := releaseSuffix.FindStringSubmatch(value); m != nil {
				info.Release, _ = strconv.Atoi(m[1])
			}
		case "pkgdesc":
			info.Description = value
		case "url":
			info.URL = value
		case "arch":
			info.Arch = value
		case "license":
			info.License = value
		case "origin":
			info.Origin = value
		case "maintainer":
			info.Maintainer = value
		case "packager":
			info.Packager = value
		case "commit":
			info.Commit = value
		case "datahash":
			info.DataHash = value
		case "builddate":
			info.BuildDate = parseInt(key, value, lineNo, warnings)
		case "size":
			info.InstalledSize = parseInt(key, value, lineNo, warnings)
		case "depend":
			depends = append(depends, value)
		case "provides":
			provides = append(provides, value)
		case "replaces":
			replaces = append(replaces, value)
		case "install_if":
			installIf = append(installIf, strings.Fields(value)...)
		case "triggers":
			info.Triggers = append(info.Triggers, strings.Fields(value)...)
		case "provider_priority":
			providerPrio = parsePriority(key, value, lineNo, warnings)
		case "replaces_priority":
			replacePrio = parsePriority(key, value, lineNo, warnings)
		default:
			info.Extra = append(info.Extra, models.KeyValue{Key: key, Value: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return info, err
	}

	for _, dep := range models.ParseDependencies("depend", depends, warnings) {
		if dep.Conflict {
			info.Conflicts = append(info.Conflicts, dep)
		} else {
			info.Depends = append(info.Depends, dep)
		}
	}
	info.InstallIf = models.ParseDependencies("install_if", installIf, warnings)
	info.ProviderPriority = providerPrio
	info.Provides = models.WithPriority(models.ParseDependencies("provides", provides, warnings), providerPrio)
	info.ReplacesPriority = replacePrio
	info.Replaces = models.WithPriority(models.ParseDependencies("replaces", replaces, warnings), replacePrio)

	return info, nil
}

func parseInt(key, value string, line int, warnings *models.Warnings) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		warnings.Addf(models.WarnInvalidField, key, line, "not an integer: %q", value)
		return 0
	}
	return n
}

func parsePriority(key, value string, line int, warnings *models.Warnings) *uint32 {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		warnings.Addf(models.WarnInvalidField, key, line, "not a priority: %q", value)
		return nil
	}
	p := uint32(n)
	return &p
}
