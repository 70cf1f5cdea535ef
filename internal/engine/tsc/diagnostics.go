package tsc

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/conneroisu/vuedts/internal/engine"
)

var (
	// src/A.vue.tsx(6,14): error TS2322: Type 'number' is not assignable to type 'string'.
	locatedPattern = regexp.MustCompile(`^(.+)\((\d+),(\d+)\): (error|warning|message) TS(\d+): (.*)$`)
	// error TS5023: Unknown compiler option 'foo'.
	globalPattern = regexp.MustCompile(`^(error|warning|message) TS(\d+): (.*)$`)
)

// parseDiagnostics reads the non-pretty output of tsc. File names are
// mapped from the workspace back to host names, and positions become
// zero-based. Indented lines continue the previous message chain.
func parseDiagnostics(output, root string) []engine.Diagnostic {
	diagnostics := make([]engine.Diagnostic, 0)
	var current *engine.Diagnostic

	flush := func() {
		if current != nil {
			diagnostics = append(diagnostics, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if m := locatedPattern.FindStringSubmatch(line); m != nil {
			flush()
			lineNo, _ := strconv.Atoi(m[2])
			column, _ := strconv.Atoi(m[3])
			code, _ := strconv.Atoi(m[5])
			current = &engine.Diagnostic{
				File:        hostName(m[1], root),
				Line:        lineNo - 1,
				Column:      column - 1,
				HasPosition: true,
				Category:    category(m[4]),
				Code:        code,
				Message:     m[6],
			}
			continue
		}

		if m := globalPattern.FindStringSubmatch(line); m != nil {
			flush()
			code, _ := strconv.Atoi(m[2])
			current = &engine.Diagnostic{
				Category: category(m[1]),
				Code:     code,
				Message:  m[3],
			}
			continue
		}

		if current != nil && strings.HasPrefix(line, "  ") {
			current.Message += "\n" + line
			continue
		}
		flush()
	}
	flush()
	return diagnostics
}

// hostName maps a file reported by tsc, relative to the workspace or
// absolute inside it, to the host file name.
func hostName(reported, root string) string {
	path := filepath.FromSlash(reported)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return string(filepath.Separator) + rel
}

func category(name string) engine.Category {
	switch name {
	case "warning":
		return engine.CategoryWarning
	case "message":
		return engine.CategoryMessage
	default:
		return engine.CategoryError
	}
}
