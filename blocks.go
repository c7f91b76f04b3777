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
)

// codeBlockIndentLimit is the column width of an indent
// required to start an indented code block.
const codeBlockIndentLimit = 4

// maxOrderedListDigits is the maximum number of digits
// permitted in an ordered list item's number.
const maxOrderedListDigits = 9

type parseResult int8

const (
	noMatch parseResult = iota
	matched
	// matchedEntireLine indicates that the block continued
	// and consumed the whole line, closing the block.
	matchedEntireLine
)

// openBlock is a block in the open block stack.
// Built-in blocks are distinguished by kind;
// blocks created by a [BlockStarter] have a non-nil ext.
type openBlock struct {
	kind Kind
	node Node
	ext  BlockParser

	// sourceIndex is the byte offset in the current line
	// at which the block's content begins.
	sourceIndex int
	startLine   int
	finalized   bool

	// lines holds the content of code, HTML, and heading blocks.
	lines []contentLine
	// refs accumulates the lines of a paragraph.
	refs *refDefParser

	// Fenced code blocks.
	fenceChar   byte
	fenceLength int
	fenceIndent int

	// HTML blocks: the block type from 1 to 7
	// and whether a line has met the type's end condition.
	htmlType  int
	htmlEnded bool

	// List items: the column offset of the item's content
	// relative to the column where the item's marker line began.
	contentIndent int
}

// contentLine is a line (or the remainder of a line)
// that belongs to a leaf block,
// along with the source range it was taken from.
type contentLine struct {
	text string
	span SourceSpan
}

func newOpenBlock(doc *Document, kind Kind) *openBlock {
	b := &openBlock{
		kind: kind,
		node: doc.NewNode(kind),
	}
	if kind == ParagraphKind {
		b.refs = new(refDefParser)
	}
	return b
}

func (b *openBlock) isContainer() bool {
	if b.ext != nil {
		return b.ext.IsContainer()
	}
	return b.kind.IsContainer()
}

func (b *openBlock) canContain(child Kind) bool {
	if b.ext != nil {
		return b.ext.CanContain(child)
	}
	switch b.kind {
	case DocumentKind, BlockQuoteKind:
		return child != ListItemKind
	case ListKind:
		return child == ListItemKind
	case ListItemKind:
		return child.IsBlock()
	default:
		return false
	}
}

func (b *openBlock) acceptsLines() bool {
	if b.ext != nil {
		return b.ext.AcceptsLines()
	}
	switch b.kind {
	case ParagraphKind, FencedCodeBlockKind, IndentedCodeBlockKind, HTMLBlockKind:
		return true
	default:
		return false
	}
}

// shouldTryBlockStarts reports whether new blocks
// may begin inside (or interrupt) b.
func (b *openBlock) shouldTryBlockStarts() bool {
	return b.kind == ParagraphKind || b.isContainer()
}

func (b *openBlock) addLine(line contentLine) {
	if b.finalized {
		panic("marktree: line added to finalized " + b.kind.String())
	}
	switch {
	case b.ext != nil:
		b.ext.AddLine(line.text)
	case b.kind == ParagraphKind:
		b.refs.parse(line)
	case b.kind == HTMLBlockKind:
		b.lines = append(b.lines, line)
		if htmlBlockEnds(b.htmlType, line.text) {
			b.htmlEnded = true
		}
	default:
		b.lines = append(b.lines, line)
	}
}

// paragraphLines returns the content lines of a paragraph
// not claimed by link reference definitions.
func (b *openBlock) paragraphLines() []contentLine {
	if b == nil || b.kind != ParagraphKind {
		return nil
	}
	return b.refs.paragraph
}

// tryContinue reports whether b continues on the current line.
// On a match, it advances the parser past the block's markers.
func (p *documentParser) tryContinue(b *openBlock) parseResult {
	if b.ext != nil {
		c := b.ext.TryContinue(p.lineState(nil))
		if !c.Matched {
			return noMatch
		}
		p.advanceTo(c.Index, c.Column)
		if c.Finished {
			return matchedEntireLine
		}
		return matched
	}

	switch b.kind {
	case BlockQuoteKind:
		if p.indent >= codeBlockIndentLimit || !p.at('>') {
			return noMatch
		}
		p.consumeBlockQuoteMarker()
		return matched
	case ListKind:
		return matched
	case ListItemKind:
		if p.blank {
			if b.node.FirstChild().IsZero() {
				// An empty list item cannot contain a blank line.
				return noMatch
			}
			p.advanceToIndex(p.nextNonSpace)
			return matched
		}
		if p.indent < b.contentIndent {
			return noMatch
		}
		p.advanceToColumn(p.column + b.contentIndent)
		return matched
	case FencedCodeBlockKind:
		if p.indent < codeBlockIndentLimit && isClosingFence(p.line[p.nextNonSpace:], b.fenceChar, b.fenceLength) {
			return matchedEntireLine
		}
		i := p.index
		for n := b.fenceIndent; n > 0 && i < len(p.line) && p.line[i] == ' '; n-- {
			i++
		}
		p.advanceToIndex(i)
		return matched
	case IndentedCodeBlockKind:
		switch {
		case p.indent >= codeBlockIndentLimit:
			p.advanceToColumn(p.column + codeBlockIndentLimit)
			return matched
		case p.blank:
			p.advanceToIndex(p.nextNonSpace)
			return matched
		default:
			return noMatch
		}
	case HTMLBlockKind:
		if b.htmlEnded || p.blank && b.htmlType >= 6 {
			return noMatch
		}
		return matched
	case ParagraphKind:
		if p.blank {
			return noMatch
		}
		return matched
	default:
		// Headings and thematic breaks are a single line.
		return noMatch
	}
}

// finalize closes the block and converts its accumulated lines
// into the node's content.
func (p *documentParser) finalize(b *openBlock) {
	if b.finalized {
		return
	}
	b.finalized = true
	if b.ext != nil {
		b.ext.Finalize()
		return
	}

	switch b.kind {
	case ParagraphKind:
		hadDefs := p.commitDefinitions(b)
		lines := b.refs.paragraph
		if isBlankContent(lines) {
			b.node.Unlink()
			return
		}
		if hadDefs {
			b.node.setSpans(contentSpans(lines))
		}
		b.node.data().content = lines
	case HeadingKind:
		b.node.data().content = b.lines
	case FencedCodeBlockKind:
		d := b.node.data()
		if len(b.lines) > 0 {
			d.info = unescapeString(strings.Trim(b.lines[0].text, " \t"))
			d.literal = joinLines(b.lines[1:])
		}
	case IndentedCodeBlockKind:
		lines := b.lines
		for len(lines) > 0 && isBlank(lines[len(lines)-1].text) {
			lines = lines[:len(lines)-1]
		}
		b.node.SetLiteral(joinLines(lines))
	case HTMLBlockKind:
		b.node.SetLiteral(strings.TrimSuffix(joinLines(b.lines), "\n"))
	case ListKind:
		b.node.setFlag(tightFlag, isTightList(b.node))
		b.node.setFlag(endsBlankFlag, endsWithBlankLine(b.node.LastChild()))
	case ListItemKind:
		b.node.setFlag(endsBlankFlag, endsWithBlankLine(b.node.LastChild()))
	}
	b.lines = nil
}

// commitDefinitions moves the link reference definitions
// found at the start of a paragraph into the tree and the reference map.
// It reports whether any were found.
func (p *documentParser) commitDefinitions(b *openBlock) bool {
	defs := b.refs.definitions()
	b.refs.defs = nil
	for _, def := range defs {
		n := p.doc.NewNode(LinkReferenceDefinitionKind)
		n.data().label = def.label
		n.SetLink(def.LinkDefinition)
		n.setSpans(def.spans)
		b.node.InsertBefore(n)
		p.doc.refs.add(NormalizeLabel(def.label), def.LinkDefinition)
	}
	return len(defs) > 0
}

func isBlankContent(lines []contentLine) bool {
	for _, line := range lines {
		if !isBlank(line.text) {
			return false
		}
	}
	return true
}

func contentSpans(lines []contentLine) []SourceSpan {
	spans := make([]SourceSpan, 0, len(lines))
	for _, line := range lines {
		if line.span.Length > 0 {
			spans = append(spans, line.span)
		}
	}
	return spans
}

// joinLines concatenates the lines, terminating each with a newline.
func joinLines(lines []contentLine) string {
	sb := new(strings.Builder)
	for _, line := range lines {
		sb.WriteString(line.text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// isTightList reports whether a list is tight:
// no item, and no block inside an item,
// may be followed by a blank line before its next sibling.
func isTightList(list Node) bool {
	for item := list.FirstChild(); !item.IsZero(); item = item.Next() {
		if endsWithBlankLine(item) && !item.Next().IsZero() {
			return false
		}
		for sub := item.FirstChild(); !sub.IsZero(); sub = sub.Next() {
			if endsWithBlankLine(sub) && (!item.Next().IsZero() || !sub.Next().IsZero()) {
				return false
			}
		}
	}
	return true
}

// endsWithBlankLine reports whether n ended with a blank line,
// following the last children of lists and list items.
// Lists and list items carry the answer for their children
// from the time they were finalized,
// so deeply nested lists are not walked more than once.
func endsWithBlankLine(n Node) bool {
	if n.IsZero() {
		return false
	}
	if n.hasFlag(lastLineBlankFlag) {
		return true
	}
	switch n.Kind() {
	case ListKind, ListItemKind:
		return n.hasFlag(endsBlankFlag)
	default:
		return false
	}
}

// blockStart is a block start recognized by one of the built-in starters.
type blockStart struct {
	blocks        []*openBlock
	index         int
	column        int
	replaceActive bool
}

// blockStarts is the list of built-in block starters in priority order.
// Each is called with the parser positioned at the start of the
// unconsumed portion of a line and the last matched block.
var blockStarts = []func(p *documentParser, matched *openBlock) *blockStart{
	startIndentedCode,
	startBlockQuote,
	startHeading,
	startFencedCode,
	startHTMLBlock,
	startThematicBreak,
	startListItem,
}

// mayStartBlock reports whether a line whose first non-space byte is c
// could begin a built-in block other than an indented code block.
func mayStartBlock(c byte) bool {
	switch c {
	case '>', '#', '`', '~', '<', '*', '+', '-', '_', '=':
		return true
	default:
		return isASCIIDigit(c)
	}
}

func startIndentedCode(p *documentParser, matched *openBlock) *blockStart {
	if p.indent < codeBlockIndentLimit || p.blank || p.tip().kind == ParagraphKind {
		return nil
	}
	return &blockStart{
		blocks: []*openBlock{newOpenBlock(p.doc, IndentedCodeBlockKind)},
		column: p.column + codeBlockIndentLimit,
	}
}

func startBlockQuote(p *documentParser, matched *openBlock) *blockStart {
	if p.indent >= codeBlockIndentLimit || !p.at('>') {
		return nil
	}
	column := p.column + p.indent + 1
	if i := p.nextNonSpace + 1; i < len(p.line) && isSpaceOrTab(p.line[i]) {
		column++
	}
	return &blockStart{
		blocks: []*openBlock{newOpenBlock(p.doc, BlockQuoteKind)},
		column: column,
	}
}

func startHeading(p *documentParser, matched *openBlock) *blockStart {
	if p.indent >= codeBlockIndentLimit {
		return nil
	}
	rest := p.line[p.nextNonSpace:]
	if h := parseATXHeading(rest); h.level > 0 {
		b := newOpenBlock(p.doc, HeadingKind)
		b.node.data().level = h.level
		b.lines = []contentLine{{
			text: rest[h.contentStart:h.contentEnd],
			span: SourceSpan{
				Line:   p.lineNumber,
				Column: p.nextNonSpace + h.contentStart,
				Length: h.contentEnd - h.contentStart,
			},
		}}
		return &blockStart{
			blocks: []*openBlock{b},
			index:  len(p.line),
		}
	}

	lines := matched.paragraphLines()
	if len(lines) == 0 {
		return nil
	}
	level := parseSetextHeadingUnderline(rest)
	if level == 0 {
		return nil
	}
	b := newOpenBlock(p.doc, HeadingKind)
	b.node.data().level = level
	b.node.setFlag(setextFlag, true)
	b.lines = append([]contentLine(nil), lines...)
	// Trailing whitespace of the last line is not part of the heading.
	last := &b.lines[len(b.lines)-1]
	last.text = trimTrailingSpaceTab(last.text)
	return &blockStart{
		blocks:        []*openBlock{b},
		index:         len(p.line),
		replaceActive: true,
	}
}

func startFencedCode(p *documentParser, matched *openBlock) *blockStart {
	if p.indent >= codeBlockIndentLimit {
		return nil
	}
	c, n := parseCodeFence(p.line[p.nextNonSpace:])
	if n == 0 {
		return nil
	}
	b := newOpenBlock(p.doc, FencedCodeBlockKind)
	b.fenceChar = c
	b.fenceLength = n
	b.fenceIndent = p.indent
	d := b.node.data()
	d.marker = c
	d.fenceLength = n
	d.fenceIndent = p.indent
	return &blockStart{
		blocks: []*openBlock{b},
		index:  p.nextNonSpace + n,
	}
}

func startHTMLBlock(p *documentParser, matched *openBlock) *blockStart {
	if p.indent >= codeBlockIndentLimit || !p.at('<') {
		return nil
	}
	// Type 7 cannot interrupt a paragraph, even a lazy one.
	inParagraph := matched != nil && matched.kind == ParagraphKind || p.tip().kind == ParagraphKind
	typ := htmlBlockType(p.line[p.nextNonSpace:], !inParagraph)
	if typ == 0 {
		return nil
	}
	b := newOpenBlock(p.doc, HTMLBlockKind)
	b.htmlType = typ
	return &blockStart{
		blocks: []*openBlock{b},
		index:  p.index,
	}
}

func startThematicBreak(p *documentParser, matched *openBlock) *blockStart {
	if p.indent >= codeBlockIndentLimit || parseThematicBreak(p.line[p.nextNonSpace:]) < 0 {
		return nil
	}
	return &blockStart{
		blocks: []*openBlock{newOpenBlock(p.doc, ThematicBreakKind)},
		index:  len(p.line),
	}
}

func startListItem(p *documentParser, matched *openBlock) *blockStart {
	if p.indent >= codeBlockIndentLimit {
		return nil
	}
	markerColumn := p.column + p.indent
	inParagraph := len(matched.paragraphLines()) > 0
	m := parseListMarker(p.line, p.nextNonSpace, markerColumn, inParagraph)
	if m == nil {
		return nil
	}

	item := newOpenBlock(p.doc, ListItemKind)
	item.contentIndent = m.contentColumn - p.column
	start := &blockStart{column: m.contentColumn}
	if matched == nil || matched.kind != ListKind || !listsMatch(matched.node, m) {
		list := newOpenBlock(p.doc, ListKind)
		d := list.node.data()
		d.marker = m.bullet
		d.delim = m.delim
		d.level = m.start
		start.blocks = append(start.blocks, list)
	}
	start.blocks = append(start.blocks, item)
	return start
}

// parseThematicBreak attempts to parse the line as a [thematic break].
// It returns the end of the thematic break characters
// or -1 if the line is not a thematic break.
// parseThematicBreak assumes that the caller has stripped any leading indentation.
//
// [thematic break]: https://spec.commonmark.org/0.30/#thematic-breaks
func parseThematicBreak(line string) (end int) {
	n := 0
	var want byte
	for i := 0; i < len(line); i++ {
		switch b := line[i]; b {
		case '-', '_', '*':
			if n == 0 {
				want = b
			} else if b != want {
				return -1
			}
			n++
			end = i + 1
		case ' ', '\t':
			// Ignore
		default:
			return -1
		}
	}
	if n < 3 {
		return -1
	}
	return end
}

type atxHeading struct {
	level        int // 1-6
	contentStart int
	contentEnd   int
}

// parseATXHeading attempts to parse the line as an [ATX heading].
// The level is zero if the line is not an ATX heading.
// parseATXHeading assumes that the caller has stripped any leading indentation.
//
// [ATX heading]: https://spec.commonmark.org/0.30/#atx-headings
func parseATXHeading(line string) atxHeading {
	var h atxHeading
	for h.level < len(line) && line[h.level] == '#' {
		h.level++
	}
	if h.level == 0 || h.level > 6 {
		return atxHeading{}
	}

	// Consume required whitespace before heading.
	i := h.level
	if i >= len(line) {
		h.contentStart = i
		h.contentEnd = i
		return h
	}
	if !isSpaceOrTab(line[i]) {
		return atxHeading{}
	}
	i = skipSpaceTab(line, i)
	h.contentStart = i

	// Find end of heading line. Skip past trailing spaces.
	h.contentEnd = len(line)
	for h.contentEnd > h.contentStart && isSpaceOrTab(line[h.contentEnd-1]) {
		h.contentEnd--
	}
	if h.contentEnd == h.contentStart || line[h.contentEnd-1] != '#' {
		return h
	}

	// The line ends with a run of hashmarks.
	// Remove them if they are the whole content
	// or if they are preceded by a space or tab.
	j := h.contentEnd
	for j > h.contentStart && line[j-1] == '#' {
		j--
	}
	switch {
	case j == h.contentStart:
		h.contentEnd = h.contentStart
	case isSpaceOrTab(line[j-1]):
		h.contentEnd = j
		for h.contentEnd > h.contentStart && isSpaceOrTab(line[h.contentEnd-1]) {
			h.contentEnd--
		}
	}
	return h
}

// parseSetextHeadingUnderline returns the heading level
// indicated by a [setext heading underline]
// or zero if the line is not an underline.
//
// [setext heading underline]: https://spec.commonmark.org/0.30/#setext-heading-underline
func parseSetextHeadingUnderline(line string) int {
	if len(line) == 0 || line[0] != '=' && line[0] != '-' {
		return 0
	}
	c := line[0]
	i := 1
	for i < len(line) && line[i] == c {
		i++
	}
	if skipSpaceTab(line, i) < len(line) {
		return 0
	}
	if c == '=' {
		return 1
	}
	return 2
}

// parseCodeFence parses the opening [code fence] at the start of line.
// n is zero if the line does not begin with a code fence.
//
// [code fence]: https://spec.commonmark.org/0.30/#code-fence
func parseCodeFence(line string) (c byte, n int) {
	if len(line) == 0 || line[0] != '`' && line[0] != '~' {
		return 0, 0
	}
	c = line[0]
	for n < len(line) && line[n] == c {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	if c == '`' && strings.IndexByte(line[n:], '`') >= 0 {
		// The info string of a backtick fence may not contain backticks.
		return 0, 0
	}
	return c, n
}

// isClosingFence reports whether line (stripped of indentation)
// closes a code block opened with n c characters.
func isClosingFence(line string, c byte, n int) bool {
	i := 0
	for i < len(line) && line[i] == c {
		i++
	}
	return i >= n && skipSpaceTab(line, i) == len(line)
}

// listMarker is a parsed [list marker].
//
// [list marker]: https://spec.commonmark.org/0.30/#list-marker
type listMarker struct {
	bullet        byte
	delim         byte
	start         int
	contentColumn int
}

// parseListMarker parses a list marker at line[i],
// which is at the given column.
// Items that would interrupt a paragraph are held to stricter rules.
func parseListMarker(line string, i int, column int, inParagraph bool) *listMarker {
	m := new(listMarker)
	end := i
	switch c := line[i]; {
	case c == '-' || c == '+' || c == '*':
		m.bullet = c
		end = i + 1
	case isASCIIDigit(c):
		for end < len(line) && isASCIIDigit(line[end]) {
			end++
		}
		if end-i > maxOrderedListDigits || end >= len(line) || line[end] != '.' && line[end] != ')' {
			return nil
		}
		for _, d := range line[i:end] {
			m.start = m.start*10 + int(d-'0')
		}
		m.delim = line[end]
		end++
	default:
		return nil
	}
	if end < len(line) && !isSpaceOrTab(line[end]) {
		return nil
	}

	columnAfterMarker := column + (end - i)
	m.contentColumn = columnAfterMarker
	hasContent := false
	for j := end; j < len(line); j++ {
		if c := line[j]; c == '\t' {
			m.contentColumn += tabStopSize - m.contentColumn%tabStopSize
		} else if c == ' ' {
			m.contentColumn++
		} else {
			hasContent = true
			break
		}
	}
	if inParagraph && (!hasContent || m.delim != 0 && m.start != 1) {
		return nil
	}
	if !hasContent || m.contentColumn-columnAfterMarker > codeBlockIndentLimit {
		// Blank items and items starting with indented code
		// have their content one column after the marker.
		m.contentColumn = columnAfterMarker + 1
	}
	return m
}

// listsMatch reports whether an item with the given marker
// continues the list.
func listsMatch(list Node, m *listMarker) bool {
	d := list.data()
	if m.delim != 0 {
		return d.delim == m.delim
	}
	return d.delim == 0 && d.marker == m.bullet
}
