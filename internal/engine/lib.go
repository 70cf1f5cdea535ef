package engine

import (
	"strings"

	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// DefaultLibFileName returns the name of the default library for the
// configured target, following the compiler's own table.
func DefaultLibFileName(opts *tsconfig.CompilerOptions) string {
	target := ""
	if opts != nil {
		target = strings.ToLower(opts.Target)
	}

	switch target {
	case "es6", "es2015":
		return "lib.es6.d.ts"
	case "es2016", "es2017", "es2018", "es2019", "es2020", "es2021", "es2022", "es2023":
		return "lib." + target + ".full.d.ts"
	case "esnext":
		return "lib.esnext.full.d.ts"
	default:
		return "lib.d.ts"
	}
}
