package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/vuedts/internal/alias"
	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/engine/enginetest"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

func component(script string) string {
	return "<template>\n  <div/>\n</template>\n\n<script lang=\"ts\">\n" + script + "\n</script>\n"
}

func newService(t *testing.T, fs afero.Fs, roots []string, opts *tsconfig.CompilerOptions) *LanguageService {
	t.Helper()
	svc, err := New(roots, opts, Environment{
		WorkingDir: "/proj",
		FS:         fs,
		Engine:     enginetest.NewFactory(fs),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func write(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func TestEmit(t *testing.T) {
	ctx := context.Background()

	t.Run("declaration for a clean component", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/Test.vue", component(`export const test: string = ""`))
		svc := newService(t, fs, []string{"/proj/Test.vue"}, nil)

		result := svc.Emit(ctx, "/proj/Test.vue")
		require.True(t, result.OK(), "errors: %v", result.Errors)
		assert.Equal(t, "export declare const test: string;", strings.TrimSpace(*result.Declaration))
		assert.Empty(t, result.Errors)
		assert.NotNil(t, result.Errors)
	})

	t.Run("type error", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/Test.vue", component(`export const test: string = 1`))
		svc := newService(t, fs, []string{"/proj/Test.vue"}, nil)

		result := svc.Emit(ctx, "/proj/Test.vue")
		assert.Nil(t, result.Declaration)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "[6,14] Type 'number' is not assignable to type 'string'.", result.Errors[0])
	})

	t.Run("type error behind a self-closing textarea", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/Form.vue", "<template>\n  <textarea v-model=\"msg\" />\n</template>\n\n"+
			"<script lang=\"ts\">\nexport const test: string = 1\n</script>\n")
		svc := newService(t, fs, []string{"/proj/Form.vue"}, nil)

		result := svc.Emit(ctx, "/proj/Form.vue")
		assert.Nil(t, result.Declaration)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "[6,14] Type 'number' is not assignable to type 'string'.", result.Errors[0])
	})

	t.Run("unknown identity", func(t *testing.T) {
		svc := newService(t, afero.NewMemMapFs(), nil, nil)

		result := svc.Emit(ctx, "/proj/Nope.vue")
		assert.Nil(t, result.Declaration)
		assert.NotNil(t, result.Errors)
		assert.Empty(t, result.Errors)
		assert.False(t, svc.Registry().CanEmit("/proj/Nope.vue.tsx"))
	})

	t.Run("placeholder for missing script", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/Empty.vue", "<template><p>hi</p></template>\n")
		write(t, fs, "/proj/Coffee.vue", "<script lang=\"coffee\">x = 1</script>\n")
		svc := newService(t, fs, []string{"/proj/Empty.vue", "/proj/Coffee.vue"}, nil)

		for _, name := range []string{"/proj/Empty.vue", "/proj/Coffee.vue"} {
			result := svc.Emit(ctx, name)
			require.True(t, result.OK(), "%s: %v", name, result.Errors)
			assert.Contains(t, *result.Declaration, "export default _default;")
		}
	})

	t.Run("suffixed identity addresses the same file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/A.vue", component(`export let n = 1`))
		svc := newService(t, fs, []string{"/proj/A.vue"}, nil)

		raw := svc.Emit(ctx, "/proj/A.vue")
		suffixed := svc.Emit(ctx, "/proj/A.vue.tsx")
		require.True(t, raw.OK())
		require.True(t, suffixed.OK())
		assert.Equal(t, *raw.Declaration, *suffixed.Declaration)
	})

	t.Run("option diagnostics are reported without position", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/A.vue", component(`export let n = 1`))
		svc := newService(t, fs, []string{"/proj/A.vue"}, &tsconfig.CompilerOptions{JSX: "vue"})

		result := svc.Emit(ctx, "/proj/A.vue")
		assert.Nil(t, result.Declaration)
		require.Len(t, result.Errors, 1)
		assert.True(t, strings.HasPrefix(result.Errors[0], "Argument for '--jsx'"))
	})

	t.Run("noEmitOnError skips output", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		write(t, fs, "/proj/A.vue", component(`export const a: boolean = "x"`))
		svc := newService(t, fs, []string{"/proj/A.vue"}, &tsconfig.CompilerOptions{NoEmitOnError: tsconfig.Bool(true)})

		result := svc.Emit(ctx, "/proj/A.vue")
		assert.Nil(t, result.Declaration)
		assert.Len(t, result.Errors, 1)
	})
}

func TestExternalReference(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	write(t, fs, "/proj/A.vue", "<template/>\n<script src=\"./a.ts\"></script>\n")
	write(t, fs, "/proj/a.ts", "export const version = 1")
	svc := newService(t, fs, []string{"/proj/A.vue"}, nil)

	result := svc.Emit(ctx, "/proj/A.vue")
	require.True(t, result.OK(), "errors: %v", result.Errors)
	assert.Equal(t, "export declare const version = 1;", strings.TrimSpace(*result.Declaration))

	write(t, fs, "/proj/a.ts", "export const version = 2")
	svc.UpdateFile("/proj/a.ts")
	hosts := svc.HostContainers("/proj/a.ts")
	require.Equal(t, []string{"/proj/A.vue"}, hosts)

	for _, host := range hosts {
		svc.UpdateFile(host)
	}
	result = svc.Emit(ctx, "/proj/A.vue")
	require.True(t, result.OK())
	assert.Equal(t, "export declare const version = 2;", strings.TrimSpace(*result.Declaration))
}

func TestRemovedFile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	write(t, fs, "/proj/A.vue", component(`export let n = 1`))
	svc := newService(t, fs, []string{"/proj/A.vue"}, nil)
	require.True(t, svc.Emit(ctx, "/proj/A.vue").OK())

	require.NoError(t, fs.Remove("/proj/A.vue"))
	svc.UpdateFile("/proj/A.vue")

	result := svc.Emit(ctx, "/proj/A.vue")
	assert.Nil(t, result.Declaration)
	assert.Empty(t, result.Errors)
}

func TestContainerImports(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	write(t, fs, "/proj/src/components/Child.vue", component(`export const size: number = 2`))
	write(t, fs, "/proj/src/Parent.vue", component(strings.Join([]string{
		`import Child from "@/components/Child.vue"`,
		`import Sibling from "./components/Child.vue"`,
		`import Missing from "./Missing.vue"`,
		`export let ok = true`,
	}, "\n")))

	opts := &tsconfig.CompilerOptions{
		BaseURL: "/proj",
		Paths:   tsconfig.PathMap{{Pattern: "@/*", Replacements: []string{"src/*"}}},
	}
	svc := newService(t, fs, []string{"/proj/src/Parent.vue"}, opts)

	result := svc.Emit(ctx, "/proj/src/Parent.vue")
	assert.Nil(t, result.Declaration)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "[8,21] Cannot find module './Missing.vue' or its corresponding type declarations.", result.Errors[0])

	names := svc.Registry().FileNames()
	assert.Contains(t, names, "/proj/src/components/Child.vue.tsx")
}

func TestResolveContainerUsesWorkingDir(t *testing.T) {
	svc := newService(t, afero.NewMemMapFs(), nil, nil)

	assert.Equal(t, "/proj/src/B.vue.tsx", svc.resolveContainer("./B.vue", "src/A.vue.tsx"))
	assert.Equal(t, "/proj/B.vue.tsx", svc.resolveContainer("../B.vue", "src/A.vue.tsx"))
	assert.Equal(t, "/other/B.vue.tsx", svc.resolveContainer("./B.vue", "/other/A.vue.tsx"))
}

func TestHostResolveModuleNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/proj/src/util.ts", "export {}")
	opts := &tsconfig.CompilerOptions{
		BaseURL: "/proj",
		Paths: tsconfig.PathMap{
			{Pattern: "@/*", Replacements: []string{"first/*"}},
			{Pattern: "@/*", Replacements: []string{"second/*"}},
		},
	}
	svc := newService(t, fs, nil, opts)
	h := &host{service: svc}

	resolved := h.ResolveModuleNames([]string{"@/X.vue", "./util", "vue", "../B.vue"}, "/proj/src/A.vue.tsx")
	require.Len(t, resolved, 4)
	assert.Equal(t, &engine.ResolvedModule{ResolvedFileName: "/proj/first/X.vue.tsx", Extension: ".tsx"}, resolved[0])
	assert.Equal(t, "/proj/src/util.ts", resolved[1].ResolvedFileName)
	assert.Nil(t, resolved[2])
	assert.Equal(t, "/proj/B.vue.tsx", resolved[3].ResolvedFileName)

	assert.Equal(t, alias.Rules{BaseURL: "/proj", Paths: []alias.Rule(opts.Paths)}, svc.rules)
}

func TestHostSettings(t *testing.T) {
	user := &tsconfig.CompilerOptions{NoEmit: tsconfig.Bool(true), Declaration: tsconfig.Bool(false), Target: "es2017"}
	svc, err := New(nil, user, Environment{
		WorkingDir:     "/proj",
		FS:             afero.NewMemMapFs(),
		Engine:         enginetest.NewFactory(nil),
		DefaultLibPath: func(*tsconfig.CompilerOptions) string { return "/custom/lib.d.ts" },
	})
	require.NoError(t, err)
	h := &host{service: svc}

	settings := h.CompilationSettings()
	assert.Nil(t, settings.NoEmit)
	assert.True(t, tsconfig.IsTrue(settings.Declaration))
	assert.True(t, tsconfig.IsTrue(settings.EmitDeclarationOnly))
	assert.Equal(t, "es2017", settings.Target)
	assert.True(t, *user.NoEmit, "caller options are not modified")

	assert.Equal(t, "/proj", h.CurrentDirectory())
	assert.Equal(t, "/custom/lib.d.ts", h.DefaultLibFileName(settings))

	svc.env.DefaultLibPath = nil
	assert.Equal(t, "/enginetest/lib/lib.es2017.full.d.ts", h.DefaultLibFileName(settings))
}

type failingEngine struct {
	engine.Service
}

func (failingEngine) EmitOutput(context.Context, string, bool, bool) (*engine.EmitOutput, error) {
	return nil, errors.New("tsc exited with status 2")
}

func (failingEngine) Close() error { return nil }

func TestEngineFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/proj/A.vue", component(`export let n = 1`))

	svc, err := New([]string{"/proj/A.vue"}, nil, Environment{
		WorkingDir: "/proj",
		FS:         fs,
		Engine: func(engine.Host) (engine.Service, error) {
			return failingEngine{}, nil
		},
	})
	require.NoError(t, err)

	result := svc.Emit(context.Background(), "/proj/A.vue")
	assert.Nil(t, result.Declaration)
	assert.Equal(t, []string{"tsc exited with status 2"}, result.Errors)
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(nil, nil, Environment{FS: afero.NewMemMapFs()})
	assert.Error(t, err)

	_, err = New(nil, nil, Environment{
		FS: afero.NewMemMapFs(),
		Engine: func(engine.Host) (engine.Service, error) {
			return nil, errors.New("boom")
		},
	})
	assert.ErrorContains(t, err, "boom")
}

func TestFormatDiagnostic(t *testing.T) {
	assert.Equal(t, "[1,1] msg", FormatDiagnostic(engine.Diagnostic{HasPosition: true, Message: "msg"}))
	assert.Equal(t, "[3,10] msg", FormatDiagnostic(engine.Diagnostic{HasPosition: true, Line: 2, Column: 9, Message: "msg"}))
	assert.Equal(t, "msg", FormatDiagnostic(engine.Diagnostic{Line: 2, Column: 9, Message: "msg"}))
}
