package apkbuild

import (
	"fmt"
	"regexp"
	"strings"
)

// Variables emitted as a single value.
var scalarFields = []string{
	"pkgname",
	"pkgver",
	"pkgrel",
	"pkgdesc",
	"url",
	"license",
	"provider_priority",
	"replaces_priority",
	"pcprefix",
	"sonameprefix",
}

// Variables emitted as lists, split by the shell on blanks.
var listFields = []string{
	"arch",
	"depends",
	"makedepends",
	"makedepends_build",
	"makedepends_host",
	"checkdepends",
	"install_if",
	"pkgusers",
	"pkggroups",
	"provides",
	"replaces",
	"install",
	"triggers",
	"subpackages",
	"source",
	"options",
}

// Variables emitted as lists, one item per line.
var lineFields = []string{
	"sha512sums",
	"sha256sums",
}

var shellName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const wrapperHeader = `# Evaluates "$APKBUILD" in the current directory and prints its variables.
# No build function of the descriptor is ever called.
`

// abuild helpers a descriptor may call outside of its build functions.
const wrapperPrelude = `die() { command printf '%s\n' "ERROR: $*" >&2; exit 1; }
error() { command printf '%s\n' "ERROR: $*" >&2; }
msg() { :; }
msg2() { :; }
plain() { :; }
warning() { :; }
warning2() { :; }
default_prepare() { :; }
default_doc() { :; }
default_dev() { :; }
default_libs() { :; }
default_static() { :; }
default_openrc() { :; }
default_bashcomp() { :; }
default_zshcomp() { :; }
default_fishcomp() { :; }
default_pyc() { :; }

startdir=$PWD
srcdir=$startdir/src
pkgbasedir=$startdir/pkg

. ./"$APKBUILD" >/dev/null

trap - EXIT HUP INT TERM
set +eu
set -f
LC_ALL=C
export LC_ALL

__alpkit_unset() {
	eval "__alpkit_isset=\${$1+x}"
	case $__alpkit_isset in
	x) return 1 ;;
	esac
	command printf 'U %s\n' "$1"
	return 0
}

__alpkit_scalar() {
	__alpkit_unset "$1" && return
	eval "__alpkit_v=\$$1"
	command printf 'S %s %d\n%s\n' "$1" "${#__alpkit_v}" "$__alpkit_v"
}

__alpkit_list() {
	__alpkit_unset "$1" && return
	eval "__alpkit_v=\$$1"
	__alpkit_ifs=$IFS
	IFS=$2
	set -- "$1" $__alpkit_v
	IFS=$__alpkit_ifs
	command printf 'L %s %d\n' "$1" "$(($# - 1))"
	shift
	for __alpkit_i in "$@"; do
		command printf 'I %d\n%s\n' "${#__alpkit_i}" "$__alpkit_i"
	done
}

__alpkit_blank=$(command printf ' \t\nx')
__alpkit_blank=${__alpkit_blank%x}
__alpkit_newline=$(command printf '\nx')
__alpkit_newline=${__alpkit_newline%x}
`

// buildWrapper generates the evaluation script. extra names additional
// variables to emit as single values; names that are not valid shell
// identifiers are left out. A positive fileLimit caps, in bytes, every
// file the shell and its children write, including captured output.
func buildWrapper(extra []string, fileLimit int64) []byte {
	var b strings.Builder
	b.WriteString(wrapperHeader)
	b.WriteByte('\n')
	if fileLimit > 0 {
		// ulimit -f counts 512-byte blocks in POSIX shells. Writes past it
		// fail with EFBIG instead of killing the writer.
		fmt.Fprintf(&b, "ulimit -f %d 2>/dev/null\ntrap '' XFSZ\n\n", (fileLimit+511)/512)
	}
	b.WriteString(wrapperPrelude)
	b.WriteByte('\n')

	seen := make(map[string]bool)
	for _, name := range scalarFields {
		fmt.Fprintf(&b, "__alpkit_scalar %s\n", name)
		seen[name] = true
	}
	for _, name := range listFields {
		fmt.Fprintf(&b, "__alpkit_list %s \"$__alpkit_blank\"\n", name)
		seen[name] = true
	}
	for _, name := range lineFields {
		fmt.Fprintf(&b, "__alpkit_list %s \"$__alpkit_newline\"\n", name)
		seen[name] = true
	}
	for _, name := range extra {
		if seen[name] || !shellName.MatchString(name) {
			continue
		}
		fmt.Fprintf(&b, "__alpkit_scalar %s\n", name)
		seen[name] = true
	}

	b.WriteString("command printf 'Z\\n'\n")
	return []byte(b.String())
}
