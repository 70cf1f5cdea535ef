package scanner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("<template/>"), 0o644))
	}
	return fs
}

func TestExpand(t *testing.T) {
	fs := newTestFS(t,
		"/proj/src/App.vue",
		"/proj/src/components/Button.vue",
		"/proj/src/components/Button.vue.d.ts",
		"/proj/src/main.ts",
		"/proj/lib/Other.vue",
		"/proj/node_modules/pkg/Dep.vue",
	)

	t.Run("directory and file targets", func(t *testing.T) {
		s := New(fs, "/proj")
		got, err := s.Expand([]string{"src", "lib/Other.vue"})
		require.NoError(t, err)

		want := []string{
			"/proj/src",
			"/proj/lib/Other.vue",
			"/proj/src/App.vue",
			"/proj/src/components/Button.vue",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overlapping targets are deduplicated", func(t *testing.T) {
		s := New(fs, "/proj")
		got, err := s.Expand([]string{"src", "/proj/src/components", "./src"})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"/proj/src",
			"/proj/src/components",
			"/proj/src/App.vue",
			"/proj/src/components/Button.vue",
		}, got)
	})

	t.Run("exclude patterns", func(t *testing.T) {
		s := New(fs, "/", WithExclude("**/node_modules/**"))
		got, err := s.Expand([]string{"/proj"})
		require.NoError(t, err)

		assert.NotContains(t, got, "/proj/node_modules/pkg/Dep.vue")
		assert.Contains(t, got, "/proj/lib/Other.vue")
	})

	t.Run("invalid exclude pattern", func(t *testing.T) {
		s := New(fs, "/", WithExclude("[abc"))
		_, err := s.Expand([]string{"/proj"})
		assert.Error(t, err)
	})

	t.Run("missing target is kept", func(t *testing.T) {
		s := New(fs, "/proj")
		got, err := s.Expand([]string{"missing"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/proj/missing"}, got)
	})
}

func TestContainers(t *testing.T) {
	got := Containers([]string{"/proj/src", "/proj/src/App.vue", "/proj/a.ts", "/proj/B.vue"})
	assert.Equal(t, []string{"/proj/src/App.vue", "/proj/B.vue"}, got)
}

func TestDeepestSharedRoot(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{name: "empty", paths: nil, want: "."},
		{name: "single", paths: []string{"src/components"}, want: "src/components"},
		{name: "siblings", paths: []string{"src/a", "src/b"}, want: "src"},
		{name: "nested", paths: []string{"src", "src/components/x"}, want: "src"},
		{name: "segment boundary", paths: []string{"src/app", "src/application"}, want: "src"},
		{name: "absolute", paths: []string{"/proj/src/a", "/proj/lib"}, want: "/proj"},
		{name: "absolute disjoint", paths: []string{"/a", "/b"}, want: "/"},
		{name: "relative disjoint", paths: []string{"a", "b"}, want: "."},
		{name: "dot prefix", paths: []string{"./src/a", "src/b/"}, want: "src"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeepestSharedRoot(tt.paths))
		})
	}
}
