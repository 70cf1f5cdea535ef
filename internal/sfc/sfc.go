// Package sfc locates the script block of a single-file component.
//
// Only top-level blocks are considered: a <script> nested inside <template>
// belongs to the template, not to the component.
package sfc

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Script is the top-level <script> block of a component.
type Script struct {
	// Lang is the value of the lang attribute.
	Lang string
	// HasLang reports whether the lang attribute was present at all.
	HasLang bool
	// Src is the value of the src attribute, empty when the code is inline.
	Src string
	// Content is the raw block body.
	Content string
	// Line is the 0-based line of the first character of Content.
	Line int
}

// supportedLangs are the declared script languages the engine understands.
var supportedLangs = map[string]bool{
	"ts":  true,
	"tsx": true,
	"js":  true,
	"jsx": true,
}

// Supported reports whether the declared language is one the engine can
// process. A block without a lang attribute is plain script.
func (s *Script) Supported() bool {
	return !s.HasLang || supportedLangs[s.Lang]
}

// Padded returns Content prefixed with blank lines so that line numbers
// reported against it match the line numbers of the component file. Blocks
// without a language are padded with line comments.
func (s *Script) Padded() string {
	pad := "\n"
	if s.Lang == "" {
		pad = "//\n"
	}
	return strings.Repeat(pad, s.Line) + s.Content
}

// voidElements never have an end tag, so they do not open a block.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Track: true,
	atom.Wbr: true,
}

// ParseScript returns the first top-level <script> block of src, or nil if
// there is none.
//
// The bodies of other top-level blocks are never tokenized. Template markup
// is not HTML: a self-closing <textarea/> or <title/> would put an HTML
// tokenizer into raw text mode until the end of the file.
func ParseScript(src []byte) *Script {
	z := html.NewTokenizer(bytes.NewReader(src))

	offset := 0
	var current *Script

	for {
		tt := z.Next()
		raw := z.Raw()
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			// Unterminated block: keep what was read.
			return current

		case html.StartTagToken, html.SelfClosingTagToken:
			if current != nil {
				continue
			}
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script {
				script := &Script{Line: bytes.Count(src[:offset], []byte("\n"))}
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					switch string(key) {
					case "lang":
						script.Lang = string(val)
						script.HasLang = true
					case "src":
						script.Src = string(val)
					}
				}
				if tt == html.SelfClosingTagToken {
					return script
				}
				current = script
				continue
			}
			if tt == html.StartTagToken && !voidElements[a] {
				offset = skipBlock(src, offset, string(name))
				z = html.NewTokenizer(bytes.NewReader(src[offset:]))
			}

		case html.TextToken:
			if current != nil {
				current.Content += string(raw)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if current != nil && atom.Lookup(name) == atom.Script {
				return current
			}
		}
	}
}

// skipBlock returns the offset just past the end tag closing the block
// named name whose start tag ends at from. Nested blocks of the same name
// are counted. An unterminated block runs to the end of src.
func skipBlock(src []byte, from int, name string) int {
	depth := 1
	pos := from
	for {
		i := bytes.IndexByte(src[pos:], '<')
		if i < 0 {
			return len(src)
		}
		pos += i + 1

		closing := pos < len(src) && src[pos] == '/'
		nameStart := pos
		if closing {
			nameStart++
		}
		if !hasTagName(src[nameStart:], name) {
			continue
		}

		end := bytes.IndexByte(src[nameStart:], '>')
		if end < 0 {
			return len(src)
		}
		end += nameStart + 1

		switch {
		case closing:
			depth--
			if depth == 0 {
				return end
			}
		case src[end-2] != '/':
			depth++
		}
		pos = end
	}
}

// hasTagName reports whether b starts with name, ignoring case, followed by
// the end of the tag name.
func hasTagName(b []byte, name string) bool {
	if len(b) < len(name) || !bytes.EqualFold(b[:len(name)], []byte(name)) {
		return false
	}
	if len(b) == len(name) {
		return true
	}
	switch b[len(name)] {
	case '>', '/', ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
