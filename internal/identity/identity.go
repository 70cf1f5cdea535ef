// Package identity maps between the names callers use for files and the names
// the type-checking engine is able to process.
//
// A container file (a .vue single-file component) is addressed by the outside
// world as "Button.vue". The engine only processes files with a script
// extension, so the same file is presented to it as "Button.vue.tsx". Both
// names refer to one logical file.
package identity

import (
	"path"
	"regexp"
	"strings"
)

// Suffix is appended to container identities so the engine treats them as
// TSX sources.
const Suffix = ".tsx"

// ContainerExt is the extension of container files.
const ContainerExt = ".vue"

// DeclarationExt is the extension of emitted declaration files.
const DeclarationExt = ".d.ts"

var (
	containerRe = regexp.MustCompile(`\.vue(?:\.tsx?)?$`)
	suffixedRe  = regexp.MustCompile(`\.vue(\.tsx)?$`)
	supportedRe = regexp.MustCompile(`\.(tsx?|jsx?|d\.ts)$`)
)

// IsContainerFile reports whether name is the raw, un-suffixed identity of a
// container file.
func IsContainerFile(name string) bool {
	return strings.HasSuffix(name, ContainerExt)
}

// IsContainer reports whether name addresses a container file, either in its
// raw form or in its compiler-facing form.
func IsContainer(name string) bool {
	return containerRe.MatchString(name)
}

// IsSupported reports whether name has an extension the engine processes.
func IsSupported(name string) bool {
	return supportedRe.MatchString(name)
}

// HasExtension reports whether the last path element of name has an extension.
func HasExtension(name string) bool {
	return strings.Contains(path.Base(strings.ReplaceAll(name, "\\", "/")), ".")
}

// Normalize returns the compiler-facing identity for name. Container
// identities gain Suffix; every other identity is returned unchanged.
func Normalize(name string) string {
	if IsContainerFile(name) {
		return name + Suffix
	}
	return name
}

// RawName strips a compiler-facing suffix previously added by Normalize.
//
// RawName(Normalize(x)) == x for every container identity x.
func RawName(name string) string {
	m := suffixedRe.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return name
	}
	return name[:len(name)-len(m[1])]
}

// DeclarationName returns the path of the declaration artifact written for a
// container identity.
func DeclarationName(name string) string {
	return RawName(name) + DeclarationExt
}
