package apkbuild

import "sort"

// ArchAll is the default list of architectures "all" and "noarch" expand to.
var ArchAll = []string{"aarch64", "armhf", "armv7", "ppc64le", "riscv64", "s390x", "x86", "x86_64"}

// expandArch resolves "all", "noarch" and "!arch" tokens into a sorted list
// of architectures.
func expandArch(tokens, all []string) []string {
	var out []string
	for _, token := range tokens {
		switch {
		case token == "all" || token == "noarch":
			out = append(out, all...)
		case len(token) > 1 && token[0] == '!':
			kept := out[:0]
			for _, a := range out {
				if a != token[1:] {
					kept = append(kept, a)
				}
			}
			out = kept
		default:
			out = append(out, token)
		}
	}

	sort.Strings(out)
	unique := make([]string, 0, len(out))
	for i, a := range out {
		if i == 0 || a != out[i-1] {
			unique = append(unique, a)
		}
	}
	return unique
}
