package enginetest

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/vuedts/internal/tsconfig"
)

func TestEmitOutput(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "annotated const",
			source: `export const test: string = ""`,
			want:   "export declare const test: string;\n",
		},
		{
			name:   "inferred let",
			source: "export let count = 3;",
			want:   "export declare let count: number;\n",
		},
		{
			name:   "const literal",
			source: "export const name = 'vue'",
			want:   "export declare const name = \"vue\";\n",
		},
		{
			name:   "default object",
			source: "export default {}",
			want:   "declare const _default: {};\nexport default _default;\n",
		},
		{
			name:   "type passthrough",
			source: "export type Size = 'sm' | 'lg';\n\nconst hidden = 1",
			want:   "export type Size = 'sm' | 'lg';\n",
		},
		{
			name:   "no exports",
			source: "const a = 1",
			want:   "export {};\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := NewMapHost(map[string]string{"/proj/a.vue.tsx": tt.source})
			eng := New(host, nil)

			diags, err := eng.Diagnostics(ctx, "/proj/a.vue.tsx")
			require.NoError(t, err)
			assert.Empty(t, diags)

			out, err := eng.EmitOutput(ctx, "/proj/a.vue.tsx", true, true)
			require.NoError(t, err)
			assert.False(t, out.EmitSkipped)

			file, ok := out.Declaration()
			require.True(t, ok)
			assert.Equal(t, "/proj/a.vue.d.ts", file.Name)
			assert.Equal(t, tt.want, file.Text)
		})
	}
}

func TestTypeMismatch(t *testing.T) {
	host := NewMapHost(map[string]string{"/proj/a.ts": "//\n  export const test: string = 1"})
	eng := New(host, nil)

	diags, err := eng.Diagnostics(context.Background(), "/proj/a.ts")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 2322, diags[0].Code)
	assert.True(t, diags[0].HasPosition)
	assert.Equal(t, 1, diags[0].Line)
	assert.Equal(t, 15, diags[0].Column)
	assert.Equal(t, "Type 'number' is not assignable to type 'string'.", diags[0].Message)
}

func TestNoEmitOnError(t *testing.T) {
	host := NewMapHost(map[string]string{"/proj/a.ts": "export const ok: boolean = 'no'"})
	host.Options.NoEmitOnError = tsconfig.Bool(true)
	eng := New(host, nil)

	out, err := eng.EmitOutput(context.Background(), "/proj/a.ts", true, true)
	require.NoError(t, err)
	assert.True(t, out.EmitSkipped)
	assert.Empty(t, out.OutputFiles)
}

func TestImports(t *testing.T) {
	ctx := context.Background()
	host := NewMapHost(map[string]string{
		"/proj/a.ts": "import { b } from './b'\nimport x from \"./missing\"\nexport const a: number = 1",
		"/proj/b.ts": "export const b = 2",
	})
	eng := New(host, nil)

	diags, err := eng.Diagnostics(ctx, "/proj/a.ts")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 2307, diags[0].Code)
	assert.Equal(t, 1, diags[0].Line)
	assert.Equal(t, 14, diags[0].Column)
	assert.Contains(t, diags[0].Message, "'./missing'")
}

func TestCaching(t *testing.T) {
	ctx := context.Background()
	host := NewMapHost(map[string]string{
		"/proj/a.ts": "import { b } from './b'\nexport const a = 1",
		"/proj/b.ts": "export const b = 2",
	})
	eng := New(host, nil)

	_, err := eng.Diagnostics(ctx, "/proj/a.ts")
	require.NoError(t, err)
	_, err = eng.EmitOutput(ctx, "/proj/a.ts", true, true)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Computations())

	host.Set("/proj/b.ts", "export const b = 3")
	_, err = eng.Diagnostics(ctx, "/proj/a.ts")
	require.NoError(t, err)
	assert.Equal(t, 2, eng.Computations(), "dependency change invalidates")

	host.Set("/proj/a.ts", "export const a = 5")
	out, err := eng.EmitOutput(ctx, "/proj/a.ts", true, true)
	require.NoError(t, err)
	assert.Equal(t, 3, eng.Computations())
	file, _ := out.Declaration()
	assert.Equal(t, "export declare const a = 5;\n", file.Text)
}

func TestOptionsDiagnostics(t *testing.T) {
	ctx := context.Background()
	host := NewMapHost(map[string]string{})
	eng := New(host, nil)

	diags, err := eng.OptionsDiagnostics(ctx)
	require.NoError(t, err)
	assert.Empty(t, diags)

	host.Options.JSX = "vue"
	diags, err = eng.OptionsDiagnostics(ctx)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 6046, diags[0].Code)
	assert.False(t, diags[0].HasPosition)
}

func TestResolveModuleName(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/util.ts", []byte("export {}"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/lib/index.d.ts", []byte("export {}"), 0644))

	host := NewMapHost(map[string]string{"/proj/mem.tsx": ""})
	eng := New(host, fs)

	mod, ok := eng.ResolveModuleName("./util", "/proj/a.ts")
	require.True(t, ok)
	assert.Equal(t, "/proj/util.ts", mod.ResolvedFileName)
	assert.Equal(t, ".ts", mod.Extension)

	mod, ok = eng.ResolveModuleName("./lib", "/proj/a.ts")
	require.True(t, ok)
	assert.Equal(t, "/proj/lib/index.d.ts", mod.ResolvedFileName)

	mod, ok = eng.ResolveModuleName("./mem", "/proj/a.ts")
	require.True(t, ok)
	assert.Equal(t, "/proj/mem.tsx", mod.ResolvedFileName)

	_, ok = eng.ResolveModuleName("vue", "/proj/a.ts")
	assert.False(t, ok)
	_, ok = eng.ResolveModuleName("./nope", "/proj/a.ts")
	assert.False(t, ok)
}

func TestClosedEngine(t *testing.T) {
	eng := New(NewMapHost(map[string]string{"/a.ts": ""}), nil)
	require.NoError(t, eng.Close())

	_, err := eng.EmitOutput(context.Background(), "/a.ts", true, true)
	assert.Error(t, err)
	assert.Equal(t, "/enginetest/lib/lib.d.ts", eng.DefaultLibFilePath(nil))
}

func TestFactory(t *testing.T) {
	svc, err := NewFactory(afero.NewMemMapFs())(NewMapHost(map[string]string{}))
	require.NoError(t, err)
	assert.IsType(t, &Engine{}, svc)
}
