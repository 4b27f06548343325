package apkbuild

import "regexp"

// Stricter than apk-tools, which accepts letters in more places, but
// matches what aports use.
const pkgverPart = `[0-9]+(?:\.[0-9]+)*[a-z]?[0-9]*(?:_[a-z]+[0-9]*)*`

var (
	pkgnameRe         = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.+-]*$`)
	pkgverRe          = regexp.MustCompile(`^` + pkgverPart + `$`)
	pkgverRelOrZeroRe = regexp.MustCompile(`^(?:` + pkgverPart + `-r[0-9]+|0)$`)
	sha256Re          = regexp.MustCompile(`^[a-f0-9]{64}$`)
	sha512Re          = regexp.MustCompile(`^[a-f0-9]{128}$`)
	wordRe            = regexp.MustCompile(`^[a-z0-9_-]+$`)
	negatableWordRe   = regexp.MustCompile(`^!?[a-z0-9_-]+$`)
	userNameRe        = regexp.MustCompile(`^[a-z_][a-z0-9._-]*\$?$`)
)
