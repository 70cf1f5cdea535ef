package service

import (
	"path/filepath"

	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// host is the engine's view of a LanguageService.
type host struct {
	service *LanguageService
}

var _ engine.Host = (*host)(nil)

func (h *host) ScriptFileNames() []string {
	return h.service.registry.FileNames()
}

func (h *host) ScriptVersion(fileName string) (string, bool) {
	return h.service.registry.Version(fileName)
}

func (h *host) ScriptSnapshot(fileName string) (string, bool) {
	return h.service.registry.Source(fileName)
}

func (h *host) CurrentDirectory() string {
	return h.service.env.WorkingDir
}

func (h *host) CompilationSettings() *tsconfig.CompilerOptions {
	return h.service.options
}

func (h *host) DefaultLibFileName(opts *tsconfig.CompilerOptions) string {
	if h.service.env.DefaultLibPath != nil {
		return h.service.env.DefaultLibPath(opts)
	}
	return h.service.engine.DefaultLibFilePath(opts)
}

// ResolveModuleNames resolves container imports itself, through the alias
// rules, and hands every other specifier to the engine.
func (h *host) ResolveModuleNames(moduleNames []string, containingFile string) []*engine.ResolvedModule {
	resolved := make([]*engine.ResolvedModule, len(moduleNames))
	for i, name := range moduleNames {
		if identity.IsContainerFile(filepath.ToSlash(name)) {
			resolved[i] = &engine.ResolvedModule{
				ResolvedFileName: h.service.resolveContainer(name, containingFile),
				Extension:        identity.Suffix,
			}
			continue
		}

		if module, ok := h.service.engine.ResolveModuleName(name, containingFile); ok {
			resolved[i] = module
		}
	}
	return resolved
}
