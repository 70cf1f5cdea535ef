package sfc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript_Inline(t *testing.T) {
	script := ParseScript([]byte(`<script lang="ts">export const test: string = ""</script>`))
	require.NotNil(t, script)

	assert.Equal(t, "ts", script.Lang)
	assert.True(t, script.HasLang)
	assert.Empty(t, script.Src)
	assert.Equal(t, `export const test: string = ""`, script.Content)
	assert.True(t, script.Supported())
}

func TestParseScript_TopLevelOnly(t *testing.T) {
	src := `<template>
  <div>
    <br>
    <script>inside template</script>
  </div>
</template>

<script lang="tsx">
export default {}
</script>

<style scoped>
.a { color: red }
</style>
`
	script := ParseScript([]byte(src))
	require.NotNil(t, script)

	assert.Equal(t, "tsx", script.Lang)
	assert.Equal(t, "\nexport default {}\n", script.Content)
	assert.Equal(t, 7, script.Line)
}

func TestParseScript_External(t *testing.T) {
	script := ParseScript([]byte(`<script lang="ts" src="./impl.ts"></script>`))
	require.NotNil(t, script)

	assert.Equal(t, "./impl.ts", script.Src)
	assert.Empty(t, script.Content)
}

func TestParseScript_SelfClosing(t *testing.T) {
	script := ParseScript([]byte(`<template><div/></template><script src="./impl.js" />`))
	require.NotNil(t, script)
	assert.Equal(t, "./impl.js", script.Src)
	assert.False(t, script.HasLang)
}

func TestParseScript_Missing(t *testing.T) {
	assert.Nil(t, ParseScript([]byte(`<template><p>hi</p></template>`)))
	assert.Nil(t, ParseScript(nil))
}

func TestScript_Supported(t *testing.T) {
	testCases := []struct {
		lang     string
		hasLang  bool
		expected bool
	}{
		{"", false, true},
		{"ts", true, true},
		{"tsx", true, true},
		{"js", true, true},
		{"jsx", true, true},
		{"coffee", true, false},
		{"", true, false},
	}

	for _, tc := range testCases {
		s := &Script{Lang: tc.lang, HasLang: tc.hasLang}
		assert.Equal(t, tc.expected, s.Supported(), "lang=%q present=%v", tc.lang, tc.hasLang)
	}
}

func TestScript_Padded(t *testing.T) {
	src := "<template>\n  <p/>\n</template>\n<script lang=\"ts\">\nexport const a = 1\n</script>"
	script := ParseScript([]byte(src))
	require.NotNil(t, script)

	assert.Equal(t, "\n\n\n\nexport const a = 1\n", script.Padded())

	plain := ParseScript([]byte("\n<script>\nfoo()</script>"))
	require.NotNil(t, plain)
	assert.Equal(t, "//\n\nfoo()", plain.Padded())

	empty := &Script{Lang: "", HasLang: true, Content: "x", Line: 2}
	assert.Equal(t, "//\n//\nx", empty.Padded())
}

func TestParseScript_RawTextElementsInTemplate(t *testing.T) {
	testCases := []struct {
		name     string
		template string
	}{
		{"self-closing textarea", `<textarea v-model="msg" />`},
		{"self-closing iframe", `<iframe :src="url"/>`},
		{"self-closing title", `<title/>`},
		{"self-closing noscript", `<noscript />`},
		{"self-closing xmp", `<xmp/>`},
		{"unclosed textarea", `<textarea v-model="msg">`},
		{"style inside template", `<style>.a{}</style>`},
		{"nested template", `<template v-if="ok"><textarea/></template><template v-else/>`},
		{"upper case end tag", `<TEXTAREA/></TEMPLATE >`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := "<template>\n  <div>" + tc.template + "</div>\n</template>\n" +
				"<script lang=\"ts\">\nexport const test: string = 1\n</script>\n"
			if tc.name == "upper case end tag" {
				src = "<template>\n  " + tc.template + "\n\n" +
					"<script lang=\"ts\">\nexport const test: string = 1\n</script>\n"
			}

			script := ParseScript([]byte(src))
			require.NotNil(t, script)
			assert.Equal(t, "ts", script.Lang)
			assert.Equal(t, "\nexport const test: string = 1\n", script.Content)
			assert.Equal(t, 3, script.Line)
		})
	}
}

func TestParseScript_UnterminatedTemplate(t *testing.T) {
	assert.Nil(t, ParseScript([]byte("<template><div>\n<script>a()</script>")))
}

func TestSkipBlock(t *testing.T) {
	src := []byte(`<template><template><p/></template><template/></template>rest`)
	end := skipBlock(src, len("<template>"), "template")
	assert.Equal(t, "rest", string(src[end:]))

	assert.Equal(t, len(src), skipBlock(src, 0, "custom"))
}
