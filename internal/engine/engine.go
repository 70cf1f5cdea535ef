// Package engine defines the contract between the compilation host adapter
// and the type-checking engine that produces declarations and diagnostics.
//
// The engine is a black box. It reads sources through a Host, which it calls
// back synchronously while it analyses a program, including for module
// resolution.
package engine

import (
	"context"
	"regexp"
	"strings"

	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// Host supplies the engine with the virtual file space.
type Host interface {
	// ScriptFileNames returns the root files of the program.
	ScriptFileNames() []string
	// ScriptVersion returns an opaque token that changes whenever the text
	// of fileName changes.
	ScriptVersion(fileName string) (string, bool)
	// ScriptSnapshot returns the current text of fileName.
	ScriptSnapshot(fileName string) (string, bool)
	CurrentDirectory() string
	CompilationSettings() *tsconfig.CompilerOptions
	DefaultLibFileName(opts *tsconfig.CompilerOptions) string
	// ResolveModuleNames resolves every import specifier of containingFile.
	// A nil element means the specifier could not be resolved.
	ResolveModuleNames(moduleNames []string, containingFile string) []*ResolvedModule
}

// Service is a language service bound to one Host.
type Service interface {
	// EmitOutput produces the output artifacts of fileName.
	EmitOutput(ctx context.Context, fileName string, emitOnlyDts, forceDts bool) (*EmitOutput, error)
	// OptionsDiagnostics reports problems with the compiler options.
	OptionsDiagnostics(ctx context.Context) ([]Diagnostic, error)
	// Diagnostics reports syntactic and semantic problems in fileName.
	Diagnostics(ctx context.Context, fileName string) ([]Diagnostic, error)
	// ResolveModuleName applies the engine's own module resolution.
	ResolveModuleName(name, containingFile string) (*ResolvedModule, bool)
	// DefaultLibFilePath returns the full path of the default library.
	DefaultLibFilePath(opts *tsconfig.CompilerOptions) string
	Close() error
}

// Factory creates a Service for a Host.
type Factory func(Host) (Service, error)

// ResolvedModule is the result of resolving an import specifier.
type ResolvedModule struct {
	ResolvedFileName        string
	Extension               string
	IsExternalLibraryImport bool
}

// OutputFile is one artifact of an emit.
type OutputFile struct {
	Name string
	Text string
}

// EmitOutput is the result of an emit request.
type EmitOutput struct {
	OutputFiles []OutputFile
	EmitSkipped bool
}

var declarationPattern = regexp.MustCompile(`\.d\.tsx?$`)

// Declaration returns the first declaration file among the outputs.
func (o *EmitOutput) Declaration() (OutputFile, bool) {
	if o == nil {
		return OutputFile{}, false
	}
	for _, file := range o.OutputFiles {
		if declarationPattern.MatchString(file.Name) {
			return file, true
		}
	}
	return OutputFile{}, false
}

// Category classifies a diagnostic.
type Category int

const (
	CategoryError Category = iota
	CategoryWarning
	CategoryMessage
)

func (c Category) String() string {
	switch c {
	case CategoryError:
		return "error"
	case CategoryWarning:
		return "warning"
	default:
		return "message"
	}
}

// Diagnostic is a problem reported by the engine. Line and Column are
// zero-based and only meaningful when HasPosition is set.
type Diagnostic struct {
	File        string
	Line        int
	Column      int
	HasPosition bool
	Category    Category
	Code        int
	Message     string
}

// MessageChain is a diagnostic message with nested detail messages.
type MessageChain struct {
	Text string
	Next []MessageChain
}

// FlattenMessage joins a message chain into one string, indenting each
// nested level by two spaces.
func FlattenMessage(chain MessageChain, newline string) string {
	var sb strings.Builder
	flatten(&sb, chain, newline, 0)
	return sb.String()
}

func flatten(sb *strings.Builder, chain MessageChain, newline string, depth int) {
	if depth > 0 {
		sb.WriteString(newline)
		sb.WriteString(strings.Repeat("  ", depth))
	}
	sb.WriteString(chain.Text)
	for _, next := range chain.Next {
		flatten(sb, next, newline, depth+1)
	}
}
