// Package scanner expands command line targets into the container files that
// should be processed.
//
// Each target is kept as given (made absolute) and, when it is a directory,
// followed by every .vue file found beneath it. Directory targets are what the
// watcher subscribes to; the container files are what the generator emits.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/conneroisu/vuedts/internal/identity"
)

// ContainerPattern matches container files below a target directory.
const ContainerPattern = "**/*" + identity.ContainerExt

// Scanner discovers container files on a file system.
type Scanner struct {
	fs         afero.Fs
	workingDir string
	exclude    []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExclude skips matches of any of the given doublestar patterns. Patterns
// are matched against paths relative to the target directory.
func WithExclude(patterns ...string) Option {
	return func(s *Scanner) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// New creates a scanner resolving relative targets against workingDir.
func New(fs afero.Fs, workingDir string, opts ...Option) *Scanner {
	s := &Scanner{fs: fs, workingDir: workingDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Expand returns the absolute targets followed by every container file found
// under the directory targets. Duplicates are dropped; the discovered files are
// sorted. Targets that do not exist are kept so the caller can report them.
func (s *Scanner) Expand(targets []string) ([]string, error) {
	for _, pattern := range s.exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	seen := make(map[string]bool, len(targets))
	result := make([]string, 0, len(targets))
	var dirs []string

	for _, target := range targets {
		abs := s.absolute(target)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		result = append(result, abs)

		info, err := s.fs.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", abs, err)
		}
		if info.IsDir() {
			dirs = append(dirs, abs)
		}
	}

	var files []string
	for _, dir := range dirs {
		matches, err := s.glob(dir)
		if err != nil {
			return nil, err
		}
		for _, file := range matches {
			if !seen[file] {
				seen[file] = true
				files = append(files, file)
			}
		}
	}
	sort.Strings(files)

	return append(result, files...), nil
}

func (s *Scanner) glob(dir string) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(s.fs, dir))
	matches, err := doublestar.Glob(fsys, ContainerPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		if s.excluded(match) {
			continue
		}
		files = append(files, filepath.Join(dir, filepath.FromSlash(match)))
	}
	return files, nil
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) absolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.workingDir, path)
}

// Containers filters paths down to container files.
func Containers(paths []string) []string {
	var result []string
	for _, path := range paths {
		if identity.IsContainerFile(path) {
			result = append(result, path)
		}
	}
	return result
}

// DeepestSharedRoot returns the longest directory prefix shared by all paths,
// compared segment by segment. Paths are cleaned but not made absolute. An
// empty input yields ".".
func DeepestSharedRoot(paths []string) string {
	if len(paths) == 0 {
		return "."
	}

	shared := segments(paths[0])
	for _, path := range paths[1:] {
		other := segments(path)
		n := 0
		for n < len(shared) && n < len(other) && shared[n] == other[n] {
			n++
		}
		shared = shared[:n]
	}

	if len(shared) == 0 {
		if filepath.IsAbs(paths[0]) {
			return string(filepath.Separator)
		}
		return "."
	}

	root := strings.Join(shared, string(filepath.Separator))
	if filepath.IsAbs(paths[0]) && !filepath.IsAbs(root) {
		root = string(filepath.Separator) + root
	}
	return root
}

func segments(path string) []string {
	clean := filepath.Clean(path)
	parts := strings.Split(clean, string(filepath.Separator))
	result := parts[:0]
	for i, part := range parts {
		if part == "" && i == 0 {
			continue
		}
		if part == "." {
			continue
		}
		result = append(result, part)
	}
	return result
}
