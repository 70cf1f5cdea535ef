package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/vuedts/internal/tsconfig"
)

func TestFlattenMessage(t *testing.T) {
	chain := MessageChain{
		Text: "Type '{ a: number; }' is not assignable to type 'Props'.",
		Next: []MessageChain{{
			Text: "Types of property 'a' are incompatible.",
			Next: []MessageChain{{Text: "Type 'number' is not assignable to type 'string'."}},
		}},
	}

	want := "Type '{ a: number; }' is not assignable to type 'Props'.\n" +
		"  Types of property 'a' are incompatible.\n" +
		"    Type 'number' is not assignable to type 'string'."
	assert.Equal(t, want, FlattenMessage(chain, "\n"))
	assert.Equal(t, "plain", FlattenMessage(MessageChain{Text: "plain"}, "\n"))
}

func TestEmitOutputDeclaration(t *testing.T) {
	out := &EmitOutput{OutputFiles: []OutputFile{
		{Name: "/p/a.vue.js", Text: "js"},
		{Name: "/p/a.vue.d.ts", Text: "dts"},
		{Name: "/p/b.d.ts", Text: "other"},
	}}

	file, ok := out.Declaration()
	assert.True(t, ok)
	assert.Equal(t, "dts", file.Text)

	_, ok = (&EmitOutput{}).Declaration()
	assert.False(t, ok)

	var none *EmitOutput
	_, ok = none.Declaration()
	assert.False(t, ok)
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "error", CategoryError.String())
	assert.Equal(t, "warning", CategoryWarning.String())
	assert.Equal(t, "message", CategoryMessage.String())
}

func TestDefaultLibFileName(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "lib.d.ts"},
		{"es5", "lib.d.ts"},
		{"ES2015", "lib.es6.d.ts"},
		{"es2017", "lib.es2017.full.d.ts"},
		{"ESNext", "lib.esnext.full.d.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultLibFileName(&tsconfig.CompilerOptions{Target: tt.target}))
		})
	}
	assert.Equal(t, "lib.d.ts", DefaultLibFileName(nil))
}
