package watcher

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/vuedts/internal/build"
	"github.com/conneroisu/vuedts/internal/console"
	"github.com/conneroisu/vuedts/internal/engine/enginetest"
	"github.com/conneroisu/vuedts/internal/service"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

func component(script string) string {
	return "<template>\n  <div/>\n</template>\n\n<script lang=\"ts\">\n" + script + "\n</script>\n"
}

func write(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func newSync(t *testing.T, fs afero.Fs, wd string, out io.Writer) *Sync {
	t.Helper()
	env := service.Environment{
		WorkingDir: wd,
		FS:         fs,
		Engine:     enginetest.NewFactory(fs),
	}
	writer := build.NewWriter(build.WriterConfig{FS: fs, Printer: console.NewPrinter(out, false)})
	s, err := NewSync(nil, env, writer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func declaration(t *testing.T, fs afero.Fs, path string) (string, bool) {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func TestSyncLifecycle(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	s := newSync(t, fs, "/proj", &out)

	assert.True(t, tsconfig.IsTrue(s.Service().Options().NoEmitOnError))

	write(t, fs, "/proj/A.vue", component(`export const a: string = ""`))
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeCreated, Path: "/proj/A.vue"}}))

	text, ok := declaration(t, fs, "/proj/A.vue.d.ts")
	require.True(t, ok)
	assert.Equal(t, "export declare const a: string;\n", text)
	assert.Equal(t, "Emitted: /proj/A.vue.d.ts\n", out.String())

	out.Reset()
	write(t, fs, "/proj/A.vue", component(`export const a: string = 1`))
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeModified, Path: "/proj/A.vue"}}))

	assert.Equal(t, "Error: /proj/A.vue.d.ts\n  [6,14] Type 'number' is not assignable to type 'string'.\n", out.String())
	text, ok = declaration(t, fs, "/proj/A.vue.d.ts")
	require.True(t, ok, "previous artifact is kept")
	assert.Equal(t, "export declare const a: string;\n", text)

	out.Reset()
	write(t, fs, "/proj/A.vue", component(`export const a: number = 1`))
	s.Change(ctx, "/proj/A.vue")
	text, _ = declaration(t, fs, "/proj/A.vue.d.ts")
	assert.Equal(t, "export declare const a: number;\n", text)

	out.Reset()
	require.NoError(t, fs.Remove("/proj/A.vue"))
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeDeleted, Path: "/proj/A.vue"}}))

	_, ok = declaration(t, fs, "/proj/A.vue.d.ts")
	assert.False(t, ok)
	assert.Equal(t, "Removed: /proj/A.vue.d.ts\n", out.String())
	assert.False(t, s.Service().Registry().CanEmit("/proj/A.vue"))
}

func TestSyncErrorsArePerComponent(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := newSync(t, fs, "/proj", io.Discard)
	collector := s.writer.Collector()

	write(t, fs, "/proj/Good.vue", component(`export const a: string = ""`))
	write(t, fs, "/proj/Bad.vue", component(`export const b: string = 1`))
	require.NoError(t, s.Handle(ctx, []ChangeEvent{
		{Type: EventTypeCreated, Path: "/proj/Good.vue"},
		{Type: EventTypeCreated, Path: "/proj/Bad.vue"},
	}))

	text, ok := declaration(t, fs, "/proj/Good.vue.d.ts")
	require.True(t, ok, "a broken component must not hold back a clean one")
	assert.Equal(t, "export declare const a: string;\n", text)
	_, ok = declaration(t, fs, "/proj/Bad.vue.d.ts")
	assert.False(t, ok)
	assert.Equal(t, []string{"/proj/Bad.vue.d.ts"}, collector.Files())

	write(t, fs, "/proj/Bad.vue", component(`export const b: string = ""`))
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeModified, Path: "/proj/Bad.vue"}}))

	assert.False(t, collector.HasErrors(), "errors are kept for the latest batch only")
	_, ok = declaration(t, fs, "/proj/Bad.vue.d.ts")
	assert.True(t, ok)
}

func TestSyncExternalScript(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	s := newSync(t, fs, "/proj", &out)

	write(t, fs, "/proj/A.vue", "<template/>\n<script src=\"./a.ts\"></script>\n")
	write(t, fs, "/proj/a.ts", "export const version = 1")
	s.Initial(ctx, []string{"/proj", "/proj/A.vue"})

	text, ok := declaration(t, fs, "/proj/A.vue.d.ts")
	require.True(t, ok)
	assert.Equal(t, "export declare const version = 1;\n", text)

	write(t, fs, "/proj/a.ts", "export const version = 2")
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeModified, Path: "/proj/a.ts"}}))

	text, _ = declaration(t, fs, "/proj/A.vue.d.ts")
	assert.Equal(t, "export declare const version = 2;\n", text)

	_, ok = declaration(t, fs, "/proj/a.ts.d.ts")
	assert.False(t, ok)

	require.NoError(t, fs.Remove("/proj/a.ts"))
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeRenamed, Path: "/proj/a.ts"}}))
	_, ok = declaration(t, fs, "/proj/A.vue.d.ts")
	assert.False(t, ok)
}

func TestSyncUnrelatedFile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	s := newSync(t, fs, "/proj", &out)

	write(t, fs, "/proj/util.ts", "export const x = 1")
	require.NoError(t, s.Handle(ctx, []ChangeEvent{{Type: EventTypeModified, Path: "/proj/util.ts"}}))

	assert.Empty(t, out.String())
	_, ok := declaration(t, fs, "/proj/util.ts.d.ts")
	assert.False(t, ok)
}

func TestSyncUnknownEvent(t *testing.T) {
	s := newSync(t, afero.NewMemMapFs(), "/proj", io.Discard)
	err := s.Handle(context.Background(), []ChangeEvent{{Type: EventType(9), Path: "/proj/A.vue"}})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file system watch test in short mode")
	}

	root := t.TempDir()
	fs := afero.NewOsFs()
	file := filepath.Join(root, "A.vue")
	target := file + ".d.ts"
	require.NoError(t, os.WriteFile(file, []byte(component(`export const a: string = ""`)), 0o644))

	s := newSync(t, fs, root, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, s, []string{root, file}, Config{Debounce: 20 * time.Millisecond})
	}()

	readTarget := func() string {
		data, err := os.ReadFile(target)
		if err != nil {
			return ""
		}
		return string(data)
	}

	require.Eventually(t, func() bool {
		return readTarget() == "export declare const a: string;\n"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(file, []byte(component(`export const a: number = 1`)), 0o644))
	require.Eventually(t, func() bool {
		return readTarget() == "export declare const a: number;\n"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(file))
	require.Eventually(t, func() bool {
		_, err := os.Stat(target)
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
