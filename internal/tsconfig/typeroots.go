package tsconfig

import (
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// TypeRootDeclarations returns every .d.ts file beneath the configured type
// roots, sorted. Roots that do not exist are skipped.
func TypeRootDeclarations(fs afero.Fs, opts *CompilerOptions) ([]string, error) {
	if opts == nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	files := make([]string, 0)
	for _, root := range opts.TypeRoots {
		info, err := fs.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		rootFS := afero.NewIOFS(afero.NewBasePathFs(fs, root))
		matches, err := doublestar.Glob(rootFS, "**/*.d.ts")
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			full := filepath.Join(root, filepath.FromSlash(match))
			if !seen[full] {
				seen[full] = true
				files = append(files, full)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
