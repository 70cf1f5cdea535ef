package enginetest

import (
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// MapHost is an engine.Host serving scripts from memory. It resolves
// relative specifiers to ".ts" files it holds.
type MapHost struct {
	WorkingDir string
	Options    *tsconfig.CompilerOptions

	mutex    sync.RWMutex
	files    map[string]string
	versions map[string]int
}

var _ engine.Host = (*MapHost)(nil)

// NewMapHost creates a host holding files at version 1.
func NewMapHost(files map[string]string) *MapHost {
	h := &MapHost{
		WorkingDir: "/proj",
		Options:    &tsconfig.CompilerOptions{},
		files:      make(map[string]string, len(files)),
		versions:   make(map[string]int, len(files)),
	}
	for name, text := range files {
		h.files[name] = text
		h.versions[name] = 1
	}
	return h
}

// Set replaces the text of name and bumps its version.
func (h *MapHost) Set(name, text string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.files[name] = text
	h.versions[name]++
}

func (h *MapHost) ScriptFileNames() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	names := make([]string, 0, len(h.files))
	for name := range h.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *MapHost) ScriptVersion(name string) (string, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	v, ok := h.versions[name]
	return strconv.Itoa(v), ok
}

func (h *MapHost) ScriptSnapshot(name string) (string, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	text, ok := h.files[name]
	return text, ok
}

func (h *MapHost) CurrentDirectory() string { return h.WorkingDir }

func (h *MapHost) CompilationSettings() *tsconfig.CompilerOptions { return h.Options }

func (h *MapHost) DefaultLibFileName(opts *tsconfig.CompilerOptions) string {
	return engine.DefaultLibFileName(opts)
}

func (h *MapHost) ResolveModuleNames(names []string, containing string) []*engine.ResolvedModule {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]*engine.ResolvedModule, len(names))
	for i, name := range names {
		path := filepath.Join(filepath.Dir(containing), name) + ".ts"
		if _, ok := h.files[path]; ok {
			out[i] = &engine.ResolvedModule{ResolvedFileName: path, Extension: ".ts"}
		}
	}
	return out
}
