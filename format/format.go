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

// Package format provides a function to format a Markdown document
// that is equivalent to the original Markdown.
package format

import (
	"io"
	"strconv"
	"strings"

	"zombiezen.com/go/marktree"
)

// Appender is implemented by the [marktree.Node.Data] values
// of custom nodes that know how to write themselves as Markdown.
// AppendMarkdown is called with entering set to true
// before the node's children are written
// and again with entering set to false after them.
type Appender interface {
	AppendMarkdown(dst []byte, entering bool) []byte
}

// Format writes the document as CommonMark to the given writer.
// Parsing the output yields a document that renders to the same HTML.
func Format(w io.Writer, doc *marktree.Document) error {
	f := &formatter{
		w:         &errWriter{w: w},
		refs:      doc.References(),
		lineStart: true,
	}
	marktree.Walk(doc.Root(), &marktree.WalkOptions{
		Pre:  f.enter,
		Post: f.exit,
	})
	return f.w.err
}

type formatter struct {
	w    *errWriter
	refs marktree.ReferenceMap

	prefixes []string
	tight    []bool
	lists    []listState
	emphasis []byte

	// started is true once the prefixes of the current line have been written.
	started bool
	// lineStart is true if nothing but prefixes and markers
	// have been written on the current line.
	lineStart bool
	// blank is true if a blank line must precede the next line.
	blank   bool
	last    byte
	heading bool
}

type listState struct {
	bullet byte
	delim  byte
	number int
}

// textEscapes is the set of characters that are escaped in text.
const textEscapes = "\\`*_[]<>&"

func (f *formatter) enter(c *marktree.Cursor) bool {
	n := c.Node()
	switch n.Kind() {
	case marktree.DocumentKind, marktree.ParagraphKind:
	case marktree.BlockQuoteKind:
		if n.FirstChild().IsZero() {
			f.write(">")
			f.block()
			return false
		}
		f.pushPrefix("> ")
	case marktree.ListKind:
		f.tight = append(f.tight, n.IsTightList())
		l := listState{
			bullet: n.ListBulletChar(),
			delim:  n.ListDelimiter(),
			number: n.ListStart(),
		}
		if l.delim == 0 && l.bullet == 0 {
			l.bullet = '-'
		}
		// Adjacent lists with the same marker would be parsed as one list.
		if prev := n.Prev(); prev.Kind() == marktree.ListKind {
			switch {
			case l.delim != 0 && prev.ListDelimiter() == l.delim:
				l.delim = otherByte(l.delim, '.', ')')
			case l.delim == 0 && prev.ListBulletChar() == l.bullet:
				l.bullet = otherByte(l.bullet, '-', '*')
			}
		}
		f.lists = append(f.lists, l)
	case marktree.ListItemKind:
		var marker string
		if len(f.lists) == 0 {
			marker = "-"
		} else if l := &f.lists[len(f.lists)-1]; l.delim != 0 {
			marker = strconv.Itoa(l.number) + string(l.delim)
			l.number++
		} else {
			marker = string(l.bullet)
		}
		if n.FirstChild().IsZero() {
			f.write(marker)
			f.block()
			return false
		}
		f.write(marker + " ")
		f.lineStart = true
		f.prefixes = append(f.prefixes, strings.Repeat(" ", len(marker)+1))
	case marktree.HeadingKind:
		level := min(max(n.HeadingLevel(), 1), 6)
		if level <= 2 && hasLineBreak(n) {
			f.heading = true
			return true
		}
		if n.FirstChild().IsZero() {
			f.write(strings.Repeat("#", level))
			f.block()
			return false
		}
		f.write(strings.Repeat("#", level) + " ")
		f.heading = true
	case marktree.ThematicBreakKind:
		f.write("***")
		f.block()
		return false
	case marktree.FencedCodeBlockKind:
		f.fencedCode(n)
		return false
	case marktree.IndentedCodeBlockKind:
		f.pushPrefix("    ")
		f.writeLines(strings.TrimSuffix(n.Literal(), "\n"))
		f.popPrefix()
		f.block()
		return false
	case marktree.HTMLBlockKind:
		f.writeLines(n.Literal())
		f.block()
		return false
	case marktree.LinkReferenceDefinitionKind:
		f.write("[" + strings.Join(strings.Fields(n.Label()), " ") + "]: ")
		f.destination(n.Destination())
		if n.TitlePresent() {
			f.write(" ")
			f.title(n.Title())
		}
		f.block()
		return false
	case marktree.TextKind:
		f.text(n)
	case marktree.SoftLineBreakKind:
		f.endLine()
	case marktree.HardLineBreakKind:
		f.write("\\")
		f.endLine()
	case marktree.EmphasisKind:
		delim := byte('*')
		if f.last == '*' {
			delim = '_'
		}
		f.emphasis = append(f.emphasis, delim)
		f.write(string(delim))
	case marktree.StrongKind:
		f.write("**")
	case marktree.CodeSpanKind:
		f.codeSpan(n.Literal())
	case marktree.RawHTMLKind:
		f.writeLines(n.Literal())
	case marktree.LinkKind:
		if n.IsAutolink() {
			text := n.Destination()
			if child := n.FirstChild(); child.Kind() == marktree.TextKind {
				text = child.Literal()
			}
			f.write("<" + text + ">")
			return false
		}
		f.write("[")
	case marktree.ImageKind:
		f.write("![")
	case marktree.CustomBlockKind, marktree.CustomInlineKind:
		if a, ok := n.Data().(Appender); ok {
			f.writeLines(string(a.AppendMarkdown(nil, true)))
		}
	}
	return true
}

func (f *formatter) exit(c *marktree.Cursor) bool {
	n := c.Node()
	switch n.Kind() {
	case marktree.DocumentKind:
		f.line()
	case marktree.ParagraphKind:
		f.block()
	case marktree.BlockQuoteKind:
		f.popPrefix()
		f.block()
	case marktree.ListKind:
		f.lists = f.lists[:len(f.lists)-1]
		f.tight = f.tight[:len(f.tight)-1]
		f.block()
	case marktree.ListItemKind:
		f.popPrefix()
	case marktree.HeadingKind:
		f.heading = false
		if n.HeadingLevel() <= 2 && hasLineBreak(n) {
			f.line()
			if n.HeadingLevel() <= 1 {
				f.write("===")
			} else {
				f.write("---")
			}
		}
		f.block()
	case marktree.EmphasisKind:
		delim := f.emphasis[len(f.emphasis)-1]
		f.emphasis = f.emphasis[:len(f.emphasis)-1]
		f.write(string(delim))
	case marktree.StrongKind:
		f.write("**")
	case marktree.LinkKind, marktree.ImageKind:
		f.write("]")
		f.linkTail(n)
	case marktree.CustomBlockKind:
		if a, ok := n.Data().(Appender); ok {
			f.writeLines(string(a.AppendMarkdown(nil, false)))
		}
		f.block()
	case marktree.CustomInlineKind:
		if a, ok := n.Data().(Appender); ok {
			f.writeLines(string(a.AppendMarkdown(nil, false)))
		}
	}
	return true
}

func (f *formatter) text(n marktree.Node) {
	s := n.Literal()
	if s == "" {
		return
	}
	if f.lineStart {
		// Escape anything that could be read as the start of a block.
		switch c := s[0]; {
		case c == '-' || c == '+' || c == '=' || c == '#' || c == '~':
			f.write("\\" + s[:1])
			s = s[1:]
		case isASCIIDigit(c):
			if i := orderedListMarkerEnd(s); i > 0 {
				f.write(s[:i-1] + "\\" + s[i-1:i])
				s = s[i:]
			}
		}
	}
	escapes := textEscapes
	if f.heading {
		escapes += "#"
	}
	bang := strings.HasSuffix(s, "!") && n.Next().Kind() == marktree.LinkKind
	if bang {
		s = s[:len(s)-1]
	}
	f.writeEscaped(s, escapes)
	if bang {
		f.write("\\!")
	}
}

func (f *formatter) codeSpan(literal string) {
	if literal == "" {
		f.write("` `")
		return
	}
	fence := strings.Repeat("`", maxRun(literal, '`')+1)
	pad := strings.HasPrefix(literal, "`") ||
		strings.HasSuffix(literal, "`") ||
		strings.HasPrefix(literal, " ") && strings.HasSuffix(literal, " ") && strings.Trim(literal, " ") != ""
	f.write(fence)
	if pad {
		f.write(" ")
	}
	f.write(literal)
	if pad {
		f.write(" ")
	}
	f.write(fence)
}

func (f *formatter) fencedCode(n marktree.Node) {
	char := n.FenceChar()
	if char == 0 {
		char = '`'
	}
	info := n.Info()
	if char == '`' && strings.Contains(info, "`") {
		char = '~'
	}
	literal := n.Literal()
	fence := strings.Repeat(string(char), max(3, n.FenceLength(), maxRun(literal, char)+1))
	f.write(fence)
	f.writeEscaped(info, "\\&")
	f.endLine()
	for len(literal) > 0 {
		line, rest, _ := strings.Cut(literal, "\n")
		f.write(line)
		f.endLine()
		literal = rest
	}
	f.write(fence)
	f.block()
}

func (f *formatter) linkTail(n marktree.Node) {
	if label := n.Label(); label != "" {
		if _, ok := f.refs.LookupReference(label); ok {
			if isCollapsible(n, label) {
				f.write("[]")
			} else {
				f.write("[" + label + "]")
			}
			return
		}
	}
	f.write("(")
	f.destination(n.Destination())
	if n.TitlePresent() {
		f.write(" ")
		f.title(n.Title())
	}
	f.write(")")
}

// isCollapsible reports whether a reference link can be written
// as a collapsed reference (i.e. [label][]).
func isCollapsible(n marktree.Node, label string) bool {
	child := n.FirstChild()
	if child.Kind() != marktree.TextKind || !child.Next().IsZero() {
		return false
	}
	text := child.Literal()
	return !strings.ContainsAny(text, textEscapes) && marktree.NormalizeLabel(text) == label
}

func (f *formatter) destination(dest string) {
	if dest != "" && !strings.ContainsFunc(dest, needsAngleBrackets) {
		f.write(dest)
		return
	}
	f.write("<")
	f.writeEscaped(dest, "\\<>&")
	f.write(">")
}

func needsAngleBrackets(c rune) bool {
	return c <= ' ' || c == 0x7f || strings.ContainsRune("()<>\\&", c)
}

func (f *formatter) title(title string) {
	f.write(`"`)
	f.writeEscaped(title, "\\\"&")
	f.write(`"`)
}

// writeEscaped writes s, preceding any byte in escapes with a backslash.
// Newlines in s end the current line.
func (f *formatter) writeEscaped(s string, escapes string) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			f.write(sb.String())
			sb.Reset()
			f.endLine()
			continue
		}
		if strings.IndexByte(escapes, c) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	f.write(sb.String())
}

// writeLines writes s verbatim, starting a new prefixed line for each newline.
func (f *formatter) writeLines(s string) {
	for {
		line, rest, more := strings.Cut(s, "\n")
		f.write(line)
		if !more {
			return
		}
		f.endLine()
		s = rest
	}
}

// write writes s on the current line,
// writing the line's prefixes first if needed.
// s must not contain a newline.
func (f *formatter) write(s string) {
	if !f.started {
		if f.blank {
			writeTrimmedIndent(f.w, f.prefixes)
			f.w.WriteString("\n")
			f.blank = false
		}
		for _, p := range f.prefixes {
			f.w.WriteString(p)
		}
		f.started = true
	}
	if s == "" {
		return
	}
	f.w.WriteString(s)
	f.last = s[len(s)-1]
	f.lineStart = false
}

// endLine terminates the current line, even if it is empty.
func (f *formatter) endLine() {
	if !f.started {
		if f.blank {
			writeTrimmedIndent(f.w, f.prefixes)
			f.w.WriteString("\n")
			f.blank = false
		}
		writeTrimmedIndent(f.w, f.prefixes)
	}
	f.w.WriteString("\n")
	f.started = false
	f.lineStart = true
	f.last = '\n'
}

// line terminates the current line if anything has been written on it.
func (f *formatter) line() {
	if f.started {
		f.endLine()
	}
}

// block ends a block.
// Blocks are separated by a blank line unless they are in a tight list.
func (f *formatter) block() {
	f.line()
	f.blank = len(f.tight) == 0 || !f.tight[len(f.tight)-1]
}

// pushPrefix adds a prefix to every subsequent line.
// If the current line's prefixes have already been written,
// the prefix is also written to the current line.
func (f *formatter) pushPrefix(p string) {
	if f.started {
		f.write(p)
		f.lineStart = true
	}
	f.prefixes = append(f.prefixes, p)
}

func (f *formatter) popPrefix() {
	f.prefixes = f.prefixes[:len(f.prefixes)-1]
}

// writeTrimmedIndent writes the concatenated indents
// without trailing whitespace.
func writeTrimmedIndent(w io.StringWriter, indents []string) error {
	end := len(indents)
	trim := ""
	for ; end > 0; end-- {
		trim = strings.TrimRight(indents[end-1], " \t")
		if trim != "" {
			break
		}
	}
	for _, indent := range indents[:max(end-1, 0)] {
		if _, err := w.WriteString(indent); err != nil {
			return err
		}
	}
	if trim != "" {
		if _, err := w.WriteString(trim); err != nil {
			return err
		}
	}
	return nil
}

func hasLineBreak(n marktree.Node) bool {
	found := false
	marktree.Inspect(n, func(n marktree.Node, entering bool) bool {
		if k := n.Kind(); k == marktree.SoftLineBreakKind || k == marktree.HardLineBreakKind {
			found = true
		}
		return !found
	})
	return found
}

// orderedListMarkerEnd returns the length of the ordered list marker
// (e.g. "12.") that s starts with or zero if s does not start with one.
func orderedListMarkerEnd(s string) int {
	i := 0
	for i < len(s) && i < 9 && isASCIIDigit(s[i]) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '.' && s[i] != ')' {
		return 0
	}
	return i + 1
}

// maxRun returns the length of the longest run of c in s.
func maxRun(s string, c byte) int {
	longest, n := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			n++
			longest = max(longest, n)
		} else {
			n = 0
		}
	}
	return longest
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func otherByte(c, a, b byte) byte {
	if c == a {
		return b
	}
	return a
}

type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = w.w.Write(p)
	return n, w.err
}

func (w *errWriter) WriteString(s string) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = io.WriteString(w.w, s)
	return n, w.err
}
