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

package marktree

import (
	"strings"
	"unicode/utf8"
)

// textRange is a half-open byte range of an inline parser's content.
type textRange struct {
	start, end int
}

// inlineParser is the state of parsing the content of one leaf block.
// It is discarded once the block's inline children are built.
type inlineParser struct {
	*Parser
	doc   *Document
	block Node

	s     string
	pos   int
	lines []inlineLine

	// ranges records the content range of every inline node created.
	ranges map[nodeIndex]textRange

	// delims is the top of the delimiter stack.
	delims *delimiter
	// brackets is the number of bracket entries in the delimiter stack.
	brackets int
}

// inlineLine maps a line of the content string back to the source.
type inlineLine struct {
	start int // offset in content
	contentLine
}

// delimiter is an entry in the delimiter stack:
// either a run of a delimiter character or a link/image opener.
type delimiter struct {
	node Node // text node holding the delimiter characters
	char byte

	len         int
	originalLen int
	canOpen     bool
	canClose    bool

	bracket bool
	image   bool
	// allowed is false for link openers
	// that would create a link inside a link.
	allowed bool
	// bracketAfter is set when another opener is pushed after this one.
	bracketAfter bool
	// contentStart is the offset just past the opener.
	contentStart int

	prev, next *delimiter
}

// parseInlineContent parses the content lines of a paragraph or heading
// and appends the resulting inline nodes to block.
func (p *documentParser) parseInlineContent(block Node, lines []contentLine) {
	ip := &inlineParser{
		Parser: p.Parser,
		doc:    p.doc,
		block:  block,
		ranges: make(map[nodeIndex]textRange),
	}
	sb := new(strings.Builder)
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		ip.lines = append(ip.lines, inlineLine{start: sb.Len(), contentLine: line})
		sb.WriteString(line.text)
	}
	ip.s = strings.TrimRight(sb.String(), " \t\n")
	ip.parse()
}

func (p *inlineParser) parse() {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if !p.special[c] {
			p.parseText()
			continue
		}
		switch c {
		case '\n':
			p.parseNewline()
		case '\\':
			p.parseBackslash()
		case '`':
			p.parseBackticks()
		case '[':
			p.pushBracket(p.pos, 1, false)
		case '!':
			if p.pos+1 < len(p.s) && p.s[p.pos+1] == '[' {
				p.pushBracket(p.pos, 2, true)
			} else {
				p.addText(p.pos, p.pos+1)
			}
		case ']':
			p.parseCloseBracket()
		case '<':
			p.parseAngleBracket()
		case '&':
			p.parseEntity()
		default:
			if proc := p.processors[c]; proc != nil {
				p.parseDelimiterRun(proc)
			} else {
				p.addText(p.pos, p.pos+1)
			}
		}
	}
	p.processEmphasis(nil)
	p.mergeText(p.block)
	p.assignSpans(p.block)
}

// newInline creates a detached inline node covering s[start:end].
func (p *inlineParser) newInline(kind Kind, start, end int) Node {
	n := p.doc.NewNode(kind)
	p.ranges[n.i] = textRange{start, end}
	return n
}

// add appends a new node to the block and advances past it.
func (p *inlineParser) add(kind Kind, start, end int) Node {
	n := p.newInline(kind, start, end)
	p.block.AppendChild(n)
	p.pos = end
	return n
}

// addText appends s[start:end] as literal text.
func (p *inlineParser) addText(start, end int) Node {
	return p.addLiteral(p.s[start:end], start, end)
}

func (p *inlineParser) addLiteral(literal string, start, end int) Node {
	n := p.add(TextKind, start, end)
	n.data().literal = literal
	return n
}

func (p *inlineParser) parseText() {
	start := p.pos
	end := start + 1
	for end < len(p.s) && !p.special[p.s[end]] {
		end++
	}
	textEnd := end
	if end < len(p.s) && p.s[end] == '\n' {
		// Trailing spaces are handled by the line break.
		for textEnd > start && p.s[textEnd-1] == ' ' {
			textEnd--
		}
	}
	if textEnd > start {
		p.addText(start, textEnd)
	}
	p.pos = end
}

// parseNewline handles a line ending,
// which becomes a hard line break if preceded by two or more spaces.
func (p *inlineParser) parseNewline() {
	spaces := 0
	for p.pos-spaces > 0 && p.s[p.pos-spaces-1] == ' ' {
		spaces++
	}
	kind := SoftLineBreakKind
	if spaces >= 2 {
		kind = HardLineBreakKind
	}
	p.add(kind, p.pos-spaces, p.pos+1)
	p.skipLeadingSpace()
}

// skipLeadingSpace skips the indentation at the start of a line.
func (p *inlineParser) skipLeadingSpace() {
	for p.pos < len(p.s) && isSpaceOrTab(p.s[p.pos]) {
		p.pos++
	}
}

func (p *inlineParser) parseBackslash() {
	start := p.pos
	if start+1 < len(p.s) {
		switch c := p.s[start+1]; {
		case c == '\n':
			p.add(HardLineBreakKind, start, start+2)
			p.skipLeadingSpace()
			return
		case isASCIIPunctuation(c):
			p.addLiteral(p.s[start+1:start+2], start, start+2)
			return
		}
	}
	p.addText(start, start+1)
}

// parseBackticks parses a [code span]
// or the literal backticks if there is no matching run.
//
// [code span]: https://spec.commonmark.org/0.30/#code-spans
func (p *inlineParser) parseBackticks() {
	start := p.pos
	contentStart := start
	for contentStart < len(p.s) && p.s[contentStart] == '`' {
		contentStart++
	}
	n := contentStart - start

	for i := contentStart; i < len(p.s); {
		j := strings.IndexByte(p.s[i:], '`')
		if j < 0 {
			break
		}
		runStart := i + j
		runEnd := runStart
		for runEnd < len(p.s) && p.s[runEnd] == '`' {
			runEnd++
		}
		if runEnd-runStart == n {
			code := p.add(CodeSpanKind, start, runEnd)
			code.data().literal = normalizeCodeSpan(p.s[contentStart:runStart])
			return
		}
		i = runEnd
	}
	p.addText(start, contentStart)
}

// normalizeCodeSpan converts line endings to spaces,
// strips surrounding whitespace,
// and collapses internal whitespace runs to a single space.
func normalizeCodeSpan(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(c rune) bool {
		return c == ' ' || c == '\n'
	}), " ")
}

func (p *inlineParser) parseEntity() {
	if text, n := parseEntity(p.s[p.pos:]); n > 0 {
		p.addLiteral(text, p.pos, p.pos+n)
		return
	}
	p.addText(p.pos, p.pos+1)
}

// parseAngleBracket parses an autolink or raw HTML
// or the literal '<' if there is neither.
func (p *inlineParser) parseAngleBracket() {
	start := p.pos
	if end := scanURIAutolink(p.s, start); end >= 0 {
		uri := p.s[start+1 : end-1]
		p.addAutolink(uri, uri, start, end)
		return
	}
	if end := scanEmailAutolink(p.s, start); end >= 0 {
		addr := p.s[start+1 : end-1]
		p.addAutolink("mailto:"+addr, addr, start, end)
		return
	}
	if end := scanHTMLTag(p.s, start); end >= 0 {
		html := p.add(RawHTMLKind, start, end)
		html.data().literal = p.s[start:end]
		return
	}
	p.addText(start, start+1)
}

func (p *inlineParser) addAutolink(dest, text string, start, end int) {
	link := p.add(LinkKind, start, end)
	link.data().destination = dest
	link.setFlag(autolinkFlag, true)
	child := p.newInline(TextKind, start+1, end-1)
	child.data().literal = text
	link.AppendChild(child)
}

// scanURIAutolink scans a [URI autolink] starting at s[i].
// It returns the index just past the closing '>' or -1.
//
// [URI autolink]: https://spec.commonmark.org/0.30/#uri-autolink
func scanURIAutolink(s string, i int) int {
	j := i + 1
	schemeStart := j
	for j < len(s) && (isASCIILetter(s[j]) || j > schemeStart && (isASCIIDigit(s[j]) || s[j] == '+' || s[j] == '.' || s[j] == '-')) {
		j++
	}
	if n := j - schemeStart; n < 2 || n > 32 || j >= len(s) || s[j] != ':' {
		return -1
	}
	for j++; j < len(s); j++ {
		switch c := s[j]; {
		case c == '>':
			return j + 1
		case c <= ' ' || c == '<' || c == 0x7f:
			return -1
		}
	}
	return -1
}

// scanEmailAutolink scans an [email autolink] starting at s[i].
// It returns the index just past the closing '>' or -1.
//
// [email autolink]: https://spec.commonmark.org/0.30/#email-autolink
func scanEmailAutolink(s string, i int) int {
	j := i + 1
	for j < len(s) && (isASCIILetter(s[j]) || isASCIIDigit(s[j]) || strings.IndexByte(".!#$%&'*+/=?^_`{|}~-", s[j]) >= 0) {
		j++
	}
	if j == i+1 || j >= len(s) || s[j] != '@' {
		return -1
	}
	for {
		// Domain label.
		j++
		labelStart := j
		for j < len(s) && j-labelStart < 63 && (isASCIILetter(s[j]) || isASCIIDigit(s[j]) || s[j] == '-') {
			j++
		}
		if j == labelStart || s[labelStart] == '-' || s[j-1] == '-' {
			return -1
		}
		if j >= len(s) {
			return -1
		}
		switch s[j] {
		case '>':
			return j + 1
		case '.':
		default:
			return -1
		}
	}
}

// parseDelimiterRun scans a run of a delimiter character
// and pushes it on the delimiter stack.
func (p *inlineParser) parseDelimiterRun(proc DelimiterProcessor) {
	start := p.pos
	c := p.s[start]
	end := start + 1
	for end < len(p.s) && p.s[end] == c {
		end++
	}
	n := end - start
	text := p.addText(start, end)
	if n < proc.MinLength() {
		return
	}

	before, after := ' ', ' '
	if start > 0 {
		before, _ = utf8.DecodeLastRuneInString(p.s[:start])
	}
	if end < len(p.s) {
		after, _ = utf8.DecodeRuneInString(p.s[end:])
	}
	canOpen, canClose := delimiterFlags(proc, before, after)
	if !canOpen && !canClose {
		return
	}
	p.push(&delimiter{
		node:        text,
		char:        c,
		len:         n,
		originalLen: n,
		canOpen:     canOpen,
		canClose:    canClose,
	})
}

// delimiterFlags reports whether a run of delimiter characters
// between the runes before and after can open or close.
func delimiterFlags(proc DelimiterProcessor, before, after rune) (canOpen, canClose bool) {
	leftFlanking := !isUnicodeWhitespace(after) &&
		(!isUnicodePunctuation(after) || isUnicodeWhitespace(before) || isUnicodePunctuation(before))
	rightFlanking := !isUnicodeWhitespace(before) &&
		(!isUnicodePunctuation(before) || isUnicodeWhitespace(after) || isUnicodePunctuation(after))
	if f, ok := proc.(DelimiterFlanker); ok {
		return f.CanOpenClose(before, after, leftFlanking, rightFlanking)
	}
	if proc.Char() == '_' {
		canOpen = leftFlanking && (!rightFlanking || isUnicodePunctuation(before))
		canClose = rightFlanking && (!leftFlanking || isUnicodePunctuation(after))
		return canOpen, canClose
	}
	return leftFlanking, rightFlanking
}

func (p *inlineParser) pushBracket(start, width int, image bool) {
	text := p.addText(start, start+width)
	for d := p.delims; d != nil; d = d.prev {
		if d.bracket {
			d.bracketAfter = true
			break
		}
	}
	p.push(&delimiter{
		node:         text,
		char:         p.s[start],
		bracket:      true,
		image:        image,
		allowed:      true,
		canOpen:      true,
		contentStart: start + width,
	})
}

func (p *inlineParser) push(d *delimiter) {
	d.prev = p.delims
	if p.delims != nil {
		p.delims.next = d
	}
	p.delims = d
	if d.bracket {
		p.brackets++
	}
}

func (p *inlineParser) removeDelimiter(d *delimiter) {
	if d.prev != nil {
		d.prev.next = d.next
	}
	if d.next != nil {
		d.next.prev = d.prev
	} else {
		p.delims = d.prev
	}
	d.prev, d.next = nil, nil
	if d.bracket {
		p.brackets--
	}
}

// parseCloseBracket resolves a ']' against the nearest link or image opener.
func (p *inlineParser) parseCloseBracket() {
	closeStart := p.pos
	afterClose := closeStart + 1

	var opener *delimiter
	if p.brackets > 0 {
		for d := p.delims; d != nil; d = d.prev {
			if d.bracket {
				opener = d
				break
			}
		}
	}
	if opener == nil {
		p.addText(closeStart, afterClose)
		return
	}
	if !opener.allowed {
		p.removeDelimiter(opener)
		p.addText(closeStart, afterClose)
		return
	}

	var label string
	def, end, ok := p.parseInlineLink(afterClose)
	if !ok {
		label, def, end, ok = p.parseReferenceLink(opener, closeStart, afterClose)
	}
	if !ok {
		p.removeDelimiter(opener)
		p.addText(closeStart, afterClose)
		return
	}

	kind := LinkKind
	if opener.image {
		kind = ImageKind
	}
	link := p.newInline(kind, p.ranges[opener.node.i].start, end)
	link.SetLink(def)
	link.data().label = label
	for n := opener.node.Next(); !n.IsZero(); {
		next := n.Next()
		link.AppendChild(n)
		n = next
	}
	p.block.AppendChild(link)

	p.processEmphasis(opener)
	p.removeDelimiter(opener)
	opener.node.Unlink()

	if !opener.image {
		// Links may not contain other links.
		for d := p.delims; d != nil; d = d.prev {
			if d.bracket && !d.image {
				d.allowed = false
			}
		}
	}
	p.pos = end
}

// parseInlineLink parses the destination and title
// of an [inline link] starting at s[i].
//
// [inline link]: https://spec.commonmark.org/0.30/#inline-link
func (p *inlineParser) parseInlineLink(i int) (def LinkDefinition, end int, ok bool) {
	s := p.s
	if i >= len(s) || s[i] != '(' {
		return LinkDefinition{}, i, false
	}
	i = skipLinkWhitespace(s, i+1)
	if i < len(s) && s[i] == ')' {
		return LinkDefinition{}, i + 1, true
	}
	def.Destination, end, ok = parseLinkDestination(s, i)
	if !ok {
		return LinkDefinition{}, i, false
	}
	j := skipLinkWhitespace(s, end)
	if j > end && j < len(s) && titleCloser(s[j]) != 0 {
		def.Title, end, ok = parseLinkTitle(s, j)
		if !ok {
			return LinkDefinition{}, i, false
		}
		def.TitlePresent = true
		j = skipLinkWhitespace(s, end)
	}
	if j >= len(s) || s[j] != ')' {
		return LinkDefinition{}, i, false
	}
	return def, j + 1, true
}

// parseReferenceLink resolves a full, collapsed, or shortcut reference
// following the ']' at closeStart.
// It returns the normalized label of the matched definition.
func (p *inlineParser) parseReferenceLink(opener *delimiter, closeStart, afterClose int) (norm string, def LinkDefinition, end int, ok bool) {
	label, end, isLabel := parseLinkLabel(p.s, afterClose)
	if !isLabel {
		end = afterClose
	}
	if !isLabel || label == "" {
		if opener.bracketAfter {
			// The text contains a bracket, so it can't be a label.
			return "", LinkDefinition{}, afterClose, false
		}
		label = p.s[opener.contentStart:closeStart]
		if len(label) > maxLabelLength {
			return "", LinkDefinition{}, afterClose, false
		}
	}
	norm = NormalizeLabel(label)
	def, ok = p.lookupReference(norm)
	if !ok {
		return "", LinkDefinition{}, afterClose, false
	}
	return norm, def, end, true
}

func (p *inlineParser) lookupReference(norm string) (LinkDefinition, bool) {
	if norm == "" {
		return LinkDefinition{}, false
	}
	if def, ok := p.doc.refs.LookupReference(norm); ok {
		return def, true
	}
	if p.refLookup != nil {
		return p.refLookup.LookupReference(norm)
	}
	return LinkDefinition{}, false
}

// processEmphasis implements the [process emphasis procedure]
// for the delimiters above stackBottom,
// removing them from the stack.
//
// [process emphasis procedure]: https://spec.commonmark.org/0.30/#process-emphasis
func (p *inlineParser) processEmphasis(stackBottom *delimiter) {
	openersBottom := make(map[byte]*delimiter)

	// Start at the lowest delimiter above stackBottom.
	var closer *delimiter
	for d := p.delims; d != nil && d != stackBottom; d = d.prev {
		closer = d
	}

	for closer != nil {
		if closer.bracket || !closer.canClose {
			closer = closer.next
			continue
		}

		// Look back for the first matching opener,
		// staying above stackBottom and openersBottom for the character.
		floor := stackBottom
		if ob, ok := openersBottom[closer.char]; ok {
			floor = ob
		}
		proc := p.processors[closer.char]
		ep, isEmphasis := proc.(emphasisProcessor)
		potential := false
		opener := closer.prev
		for ; opener != nil && opener != stackBottom && opener != floor; opener = opener.prev {
			if opener.bracket || opener.char != closer.char || !opener.canOpen {
				continue
			}
			potential = true
			if !isEmphasis || ep.canPair(opener.run(), closer.run()) {
				break
			}
		}
		if opener == nil || opener == stackBottom || opener == floor {
			next := closer.next
			// An opener rejected by the multiple of 3 rule
			// stays eligible for later closers.
			if !potential {
				openersBottom[closer.char] = closer.prev
				if !closer.canOpen {
					p.removeDelimiter(closer)
				}
			}
			closer = next
			continue
		}

		use := proc.Process(opener.run(), closer.run())
		use = min(max(use, 1), opener.len, closer.len)
		opener.len -= use
		closer.len -= use

		openerText, closerText := opener.node.data(), closer.node.data()
		openerText.literal = openerText.literal[:len(openerText.literal)-use]
		closerText.literal = closerText.literal[use:]
		or, cr := p.ranges[opener.node.i], p.ranges[closer.node.i]
		or.end -= use
		cr.start += use
		p.ranges[opener.node.i] = or
		p.ranges[closer.node.i] = cr

		wrapper := proc.Wrap(p.doc, use)
		p.ranges[wrapper.i] = textRange{or.end, cr.start}
		for n := opener.node.Next(); n != closer.node; {
			next := n.Next()
			wrapper.AppendChild(n)
			n = next
		}
		opener.node.InsertAfter(wrapper)

		for d := closer.prev; d != opener; {
			prev := d.prev
			p.removeDelimiter(d)
			d = prev
		}
		if opener.len == 0 {
			opener.node.Unlink()
			p.removeDelimiter(opener)
		}
		if closer.len == 0 {
			next := closer.next
			closer.node.Unlink()
			p.removeDelimiter(closer)
			closer = next
		}
	}

	for p.delims != nil && p.delims != stackBottom {
		p.removeDelimiter(p.delims)
	}
}

func (d *delimiter) run() DelimiterRun {
	return DelimiterRun{
		Len:         d.len,
		OriginalLen: d.originalLen,
		CanOpen:     d.canOpen,
		CanClose:    d.canClose,
	}
}

// mergeText combines adjacent text nodes under parent, recursively.
func (p *inlineParser) mergeText(parent Node) {
	for n := parent.FirstChild(); !n.IsZero(); n = n.Next() {
		if n.Kind() != TextKind {
			p.mergeText(n)
			continue
		}
		next := n.Next()
		if next.IsZero() || next.Kind() != TextKind {
			continue
		}
		sb := new(strings.Builder)
		sb.WriteString(n.data().literal)
		r := p.ranges[n.i]
		for ; !next.IsZero() && next.Kind() == TextKind; next = n.Next() {
			sb.WriteString(next.data().literal)
			r.end = max(r.end, p.ranges[next.i].end)
			next.Unlink()
		}
		n.data().literal = sb.String()
		p.ranges[n.i] = r
	}
}

// assignSpans converts the content ranges of the inline nodes under parent
// into source spans.
func (p *inlineParser) assignSpans(parent Node) {
	for n := parent.FirstChild(); !n.IsZero(); n = n.Next() {
		if r, ok := p.ranges[n.i]; ok {
			n.setSpans(p.spansFor(r))
		}
		p.assignSpans(n)
	}
}

func (p *inlineParser) spansFor(r textRange) []SourceSpan {
	var spans []SourceSpan
	for _, line := range p.lines {
		lineEnd := line.start + len(line.text)
		start, end := max(r.start, line.start), min(r.end, lineEnd)
		if start >= end {
			continue
		}
		spans = append(spans, SourceSpan{
			Line:   line.span.Line,
			Column: line.sourceColumn(start - line.start),
			Length: line.sourceColumn(end-line.start) - line.sourceColumn(start-line.start),
		})
	}
	return spans
}

// sourceColumn maps an offset in the line's text to a column in the source.
func (line inlineLine) sourceColumn(i int) int {
	// Text may begin with spaces that replaced part of a tab.
	expanded := max(0, len(line.text)-line.span.Length)
	return line.span.Column + min(max(0, i-expanded), line.span.Length)
}
