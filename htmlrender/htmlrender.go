// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package htmlrender renders a [marktree.Document] as HTML.
package htmlrender

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go4.org/bytereplacer"
	"golang.org/x/net/html/atom"
	"zombiezen.com/go/marktree"
)

// A Renderer converts a parsed document into HTML.
//
// # Security considerations
//
// CommonMark permits the use of [raw HTML], which can introduce
// [Cross-Site Scripting (XSS)] vulnerabilities and [HTML parse errors]
// when used with untrusted inputs.
// There are a few options to mitigate this risk:
//
//   - The resulting HTML can be sent through an HTML sanitizer.
//     This is highly recommended.
//   - Set IgnoreRaw to prevent inclusion of raw HTML.
//     This eliminates any raw HTML usage,
//     so the output is guaranteed to use a fixed set of elements
//     and avoid parse errors.
//     However, this can lead to content being omitted from the document entirely,
//     which may be surprising to end-users for legitimate use cases.
//   - FilterTag can be used to prevent some tags from being used
//     while still showing the source text.
//     Note that this does not prevent parse errors.
//     For untrusted inputs, this technique should be combined with sanitization.
//
// [Cross-Site Scripting (XSS)]: https://owasp.org/www-community/attacks/xss/
// [HTML parse errors]: https://html.spec.whatwg.org/multipage/parsing.html#parse-errors
// [raw HTML]: https://spec.commonmark.org/0.30/#raw-html
type Renderer struct {
	// SoftBreakBehavior determines how soft line breaks are rendered.
	SoftBreakBehavior SoftBreakBehavior
	// If IgnoreRaw is true, the renderer skips any HTML blocks or raw HTML.
	IgnoreRaw bool
	// FilterTag is a predicate function
	// that reports whether an element with the given lowercased tag name
	// should have its leading angle bracket escaped.
	// It is consulted only for tags in raw HTML and HTML blocks:
	// the elements the renderer emits for Markdown constructs
	// (like <p> or <em>) are never filtered.
	// If FilterTag is nil, then no filtering will occur.
	//
	// FilterTag functions must not modify the byte slice
	// nor retain the slice after the function returns.
	FilterTag func(tag []byte) bool
}

// An Appender is implemented by the [marktree.Node.Data]
// of custom nodes that know how to render themselves.
// AppendHTML is called when entering the node and again when leaving it;
// the node's children are rendered in between.
// Custom nodes whose data is not an Appender render only their children.
type Appender interface {
	AppendHTML(dst []byte, entering bool) []byte
}

// Render writes the document to w as HTML
// using the default options for [Renderer].
func Render(w io.Writer, doc *marktree.Document) error {
	return new(Renderer).Render(w, doc)
}

// Render writes the document to w as HTML.
// It returns the first error encountered, if any.
func (r *Renderer) Render(w io.Writer, doc *marktree.Document) error {
	buf := r.AppendNode(nil, doc.Root())
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("render markdown to html: %w", err)
	}
	return nil
}

// AppendNode appends the rendered HTML of n and its descendants to dst
// and returns the resulting byte slice.
func (r *Renderer) AppendNode(dst []byte, n marktree.Node) []byte {
	state := &renderState{
		Renderer: r,
		dst:      dst,
	}
	marktree.Walk(n, &marktree.WalkOptions{
		Pre:  state.enter,
		Post: state.exit,
	})
	return state.dst
}

type renderState struct {
	*Renderer
	dst      []byte
	lowerBuf []byte
}

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	// "&#39;" is shorter than "&apos;" and apos was not in HTML until HTML5.
	`'`, "&#39;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// escape appends the HTML-escaped form of s.
func (r *renderState) escape(s string) {
	if !strings.ContainsAny(s, `&'<>"`) {
		r.dst = append(r.dst, s...)
		return
	}
	r.dst = append(r.dst, htmlEscaper.Replace([]byte(s))...)
}

func (r *renderState) openTagAttr(name atom.Atom) {
	r.dst = append(r.dst, '<')
	r.dst = append(r.dst, name.String()...)
}

func (r *renderState) openTag(name atom.Atom) {
	r.openTagAttr(name)
	r.dst = append(r.dst, '>')
}

func (r *renderState) closeTag(name atom.Atom) {
	r.dst = append(r.dst, "</"...)
	r.dst = append(r.dst, name.String()...)
	r.dst = append(r.dst, '>')
}

func (r *renderState) attr(name, value string) {
	r.dst = append(r.dst, ' ')
	r.dst = append(r.dst, name...)
	r.dst = append(r.dst, `="`...)
	r.escape(value)
	r.dst = append(r.dst, '"')
}

func (r *renderState) newline() {
	if len(r.dst) > 0 && r.dst[len(r.dst)-1] != '\n' {
		r.dst = append(r.dst, '\n')
	}
}

func (r *renderState) enter(c *marktree.Cursor) bool {
	n := c.Node()
	switch n.Kind() {
	case marktree.DocumentKind:
	case marktree.ParagraphKind:
		if !inTightList(n) {
			r.newline()
			r.openTag(atom.P)
		}
	case marktree.HeadingKind:
		r.newline()
		r.openTag(headingTag(n.HeadingLevel()))
	case marktree.BlockQuoteKind:
		r.newline()
		r.openTag(atom.Blockquote)
		r.newline()
	case marktree.ListKind:
		r.newline()
		if n.IsOrderedList() {
			r.openTagAttr(atom.Ol)
			if start := n.ListStart(); start != 1 {
				r.attr("start", strconv.Itoa(start))
			}
			r.dst = append(r.dst, '>')
		} else {
			r.openTag(atom.Ul)
		}
		r.newline()
	case marktree.ListItemKind:
		r.newline()
		r.openTag(atom.Li)
	case marktree.FencedCodeBlockKind, marktree.IndentedCodeBlockKind:
		r.newline()
		r.openTag(atom.Pre)
		r.openTagAttr(atom.Code)
		if words := strings.Fields(n.Info()); len(words) > 0 {
			r.attr("class", "language-"+words[0])
		}
		r.dst = append(r.dst, '>')
		r.escape(n.Literal())
		r.closeTag(atom.Code)
		r.closeTag(atom.Pre)
		r.newline()
		return false
	case marktree.ThematicBreakKind:
		r.newline()
		r.openTagAttr(atom.Hr)
		r.dst = append(r.dst, " />\n"...)
		return false
	case marktree.HTMLBlockKind:
		if !r.IgnoreRaw {
			r.newline()
			r.raw(n.Literal())
			r.newline()
		}
		return false
	case marktree.LinkReferenceDefinitionKind:
		return false
	case marktree.TextKind:
		r.escape(n.Literal())
	case marktree.SoftLineBreakKind:
		switch r.SoftBreakBehavior {
		case SoftBreakHarden:
			r.hardBreak()
		case SoftBreakSpace:
			r.dst = append(r.dst, ' ')
		default:
			r.dst = append(r.dst, '\n')
		}
	case marktree.HardLineBreakKind:
		r.hardBreak()
	case marktree.EmphasisKind:
		r.openTag(atom.Em)
	case marktree.StrongKind:
		r.openTag(atom.Strong)
	case marktree.CodeSpanKind:
		r.openTag(atom.Code)
		r.escape(n.Literal())
		r.closeTag(atom.Code)
	case marktree.RawHTMLKind:
		if !r.IgnoreRaw {
			r.raw(n.Literal())
		}
	case marktree.LinkKind:
		r.openTagAttr(atom.A)
		r.attr("href", NormalizeURI(n.Destination()))
		if n.TitlePresent() {
			r.attr("title", n.Title())
		}
		r.dst = append(r.dst, '>')
	case marktree.ImageKind:
		r.openTagAttr(atom.Img)
		r.attr("src", NormalizeURI(n.Destination()))
		r.attr("alt", altText(n))
		if n.TitlePresent() {
			r.attr("title", n.Title())
		}
		r.dst = append(r.dst, " />"...)
		return false
	case marktree.CustomBlockKind, marktree.CustomInlineKind:
		if a, ok := n.Data().(Appender); ok {
			r.dst = a.AppendHTML(r.dst, true)
		}
	}
	return true
}

func (r *renderState) exit(c *marktree.Cursor) bool {
	n := c.Node()
	switch n.Kind() {
	case marktree.ParagraphKind:
		if !inTightList(n) {
			r.closeTag(atom.P)
			r.newline()
		}
	case marktree.HeadingKind:
		r.closeTag(headingTag(n.HeadingLevel()))
		r.newline()
	case marktree.BlockQuoteKind:
		r.newline()
		r.closeTag(atom.Blockquote)
		r.newline()
	case marktree.ListKind:
		r.newline()
		if n.IsOrderedList() {
			r.closeTag(atom.Ol)
		} else {
			r.closeTag(atom.Ul)
		}
		r.newline()
	case marktree.ListItemKind:
		r.closeTag(atom.Li)
		r.newline()
	case marktree.EmphasisKind:
		r.closeTag(atom.Em)
	case marktree.StrongKind:
		r.closeTag(atom.Strong)
	case marktree.LinkKind:
		r.closeTag(atom.A)
	case marktree.CustomBlockKind, marktree.CustomInlineKind:
		if a, ok := n.Data().(Appender); ok {
			r.dst = a.AppendHTML(r.dst, false)
		}
	}
	return true
}

func (r *renderState) hardBreak() {
	r.openTagAttr(atom.Br)
	r.dst = append(r.dst, " />\n"...)
}

func (r *renderState) raw(s string) {
	if r.FilterTag == nil {
		r.dst = append(r.dst, s...)
	} else {
		r.filterRaw(s)
	}
}

// inTightList reports whether a paragraph is rendered without tags
// because it belongs to an item of a tight list.
func inTightList(paragraph marktree.Node) bool {
	item := paragraph.Parent()
	return item.Kind() == marktree.ListItemKind && item.Parent().IsTightList()
}

func headingTag(level int) atom.Atom {
	switch level {
	case 1:
		return atom.H1
	case 2:
		return atom.H2
	case 3:
		return atom.H3
	case 4:
		return atom.H4
	case 5:
		return atom.H5
	default:
		return atom.H6
	}
}

// altText returns the plain text content of an image's description.
func altText(image marktree.Node) string {
	sb := new(strings.Builder)
	marktree.Inspect(image, func(n marktree.Node, entering bool) bool {
		if !entering {
			return true
		}
		switch n.Kind() {
		case marktree.TextKind, marktree.CodeSpanKind:
			sb.WriteString(n.Literal())
		case marktree.SoftLineBreakKind, marktree.HardLineBreakKind:
			sb.WriteByte(' ')
		}
		return true
	})
	return sb.String()
}

// SoftBreakBehavior is an enumeration of rendering styles for [soft line breaks].
//
// [soft line breaks]: https://spec.commonmark.org/0.30/#soft-line-breaks
type SoftBreakBehavior int

const (
	// SoftBreakPreserve indicates that a soft line break should be rendered as-is.
	SoftBreakPreserve SoftBreakBehavior = iota
	// SoftBreakSpace indicates that a soft line break should be rendered as a space.
	SoftBreakSpace
	// SoftBreakHarden indicates that a soft line break should be rendered as a hard line break.
	SoftBreakHarden
)

// String returns the name of the constant.
func (b SoftBreakBehavior) String() string {
	switch b {
	case SoftBreakPreserve:
		return "SoftBreakPreserve"
	case SoftBreakSpace:
		return "SoftBreakSpace"
	case SoftBreakHarden:
		return "SoftBreakHarden"
	default:
		return "SoftBreakBehavior(" + strconv.Itoa(int(b)) + ")"
	}
}
