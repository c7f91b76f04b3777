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

// Package marktree provides a [CommonMark] parser
// that produces a mutable document tree.
//
// [CommonMark]: https://commonmark.org/
package marktree

import (
	"fmt"
	"strings"
)

// tabStopSize is the multiple of columns that a [tab] advances to.
//
// [tab]: https://spec.commonmark.org/0.30/#tabs
const tabStopSize = 4

// Options is the set of extensions for a [Parser].
type Options struct {
	// BlockStarters are tried in order
	// after the built-in block starts fail to match a line.
	BlockStarters []BlockStarter
	// PriorityBlockStarters are tried in order
	// before the built-in block starts,
	// so they may claim lines that would otherwise start a built-in block.
	PriorityBlockStarters []BlockStarter
	// DelimiterProcessors add inline syntaxes keyed by a delimiter character.
	// No two processors may share a character,
	// and '*' and '_' are reserved for emphasis.
	DelimiterProcessors []DelimiterProcessor
	// ReferenceLookup, if not nil, is consulted for link labels
	// that the document does not define.
	ReferenceLookup ReferenceLookup
}

// A Parser converts CommonMark text into a [Document].
// A Parser is immutable once created
// and is safe to use from multiple goroutines concurrently.
type Parser struct {
	priorityStarters []BlockStarter
	blockStarters    []BlockStarter
	processors       map[byte]DelimiterProcessor
	special          [256]bool
	refLookup        ReferenceLookup
}

// builtinSpecialChars are the bytes that interrupt a run of inline text.
const builtinSpecialChars = "\n\\`[]!<&*_"

var defaultParser = mustNewParser(nil)

// NewParser returns a parser configured with the given extensions.
// A nil opts is equivalent to an empty one.
func NewParser(opts *Options) (*Parser, error) {
	p := &Parser{
		processors: map[byte]DelimiterProcessor{
			'*': emphasisProcessor{'*'},
			'_': emphasisProcessor{'_'},
		},
	}
	for i := 0; i < len(builtinSpecialChars); i++ {
		p.special[builtinSpecialChars[i]] = true
	}
	if opts == nil {
		return p, nil
	}

	p.priorityStarters = append([]BlockStarter(nil), opts.PriorityBlockStarters...)
	for i, bs := range p.priorityStarters {
		if bs == nil {
			return nil, fmt.Errorf("new parser: priority block starter %d is nil", i)
		}
	}
	p.blockStarters = append([]BlockStarter(nil), opts.BlockStarters...)
	for i, bs := range p.blockStarters {
		if bs == nil {
			return nil, fmt.Errorf("new parser: block starter %d is nil", i)
		}
	}
	for i, dp := range opts.DelimiterProcessors {
		if err := p.addProcessor(dp); err != nil {
			return nil, fmt.Errorf("new parser: delimiter processor %d: %w", i, err)
		}
	}
	p.refLookup = opts.ReferenceLookup
	return p, nil
}

func mustNewParser(opts *Options) *Parser {
	p, err := NewParser(opts)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Parser) addProcessor(dp DelimiterProcessor) error {
	if dp == nil {
		return fmt.Errorf("nil processor")
	}
	c := dp.Char()
	if !isASCIIPunctuation(c) {
		return fmt.Errorf("%T: delimiter %q is not ASCII punctuation", dp, c)
	}
	if p.special[c] {
		if _, isDelim := p.processors[c]; isDelim {
			return fmt.Errorf("%T: delimiter %q already registered", dp, c)
		}
		return fmt.Errorf("%T: delimiter %q is reserved", dp, c)
	}
	if dp.MinLength() < 1 {
		return fmt.Errorf("%T: minimum length %d less than 1", dp, dp.MinLength())
	}
	p.processors[c] = dp
	p.special[c] = true
	return nil
}

// Parse parses source with the default options.
func Parse(source []byte) *Document {
	return defaultParser.Parse(source)
}

// Parse parses a CommonMark document.
// Every input has a parse, so Parse does not return an error.
func (p *Parser) Parse(source []byte) *Document {
	text := string(source)
	if strings.IndexByte(text, 0) >= 0 {
		// Contains one or more NUL bytes.
		// Replace with Unicode replacement character.
		text = strings.ReplaceAll(text, "\x00", "\ufffd")
	}

	dp := &documentParser{
		Parser: p,
		doc:    NewDocument(),
	}
	dp.doc.refs = make(ReferenceMap)
	root := &openBlock{
		kind: DocumentKind,
		node: dp.doc.Root(),
	}
	dp.open = append(dp.open, root)

	for lineStart := 0; lineStart < len(text); {
		i := strings.IndexAny(text[lineStart:], "\r\n")
		if i < 0 {
			dp.parseLine(text[lineStart:])
			break
		}
		eol := lineStart + i
		dp.parseLine(text[lineStart:eol])
		lineStart = eol + 1
		if text[eol] == '\r' && lineStart < len(text) && text[lineStart] == '\n' {
			lineStart++
		}
	}
	dp.closeBlocks(len(dp.open))

	dp.parseInlines()
	return dp.doc
}

// documentParser is the state of a single call to [*Parser.Parse].
type documentParser struct {
	*Parser
	doc  *Document
	open []*openBlock

	line       string
	lineNumber int // 0-based

	// index is the byte offset of the parse position in line.
	index int
	// column is the column of the parse position with tabs expanded.
	column int
	// partialTab is true if the parse position
	// is partway through the tab at line[index].
	partialTab bool

	nextNonSpace int
	indent       int
	blank        bool
}

func (p *documentParser) tip() *openBlock {
	return p.open[len(p.open)-1]
}

// parseLine analyzes a single line of input,
// updating the open block stack.
//
// This corresponds to [Phase 1]
// in the CommonMark recommended parsing strategy.
//
// [Phase 1]: https://spec.commonmark.org/0.30/#phase-1-block-structure
func (p *documentParser) parseLine(line string) {
	p.line = line
	p.index = 0
	p.column = 0
	p.partialTab = false

	// Step 1: descend through the open blocks.
	matches := 1
descend:
	for _, b := range p.open[1:] {
		p.findNextNonSpace()
		sourceIndex := p.index
		switch p.tryContinue(b) {
		case noMatch:
			break descend
		case matchedEntireLine:
			b.sourceIndex = sourceIndex
			p.addSourceSpans()
			p.closeBlocks(len(p.open) - matches)
			p.lineNumber++
			return
		}
		b.sourceIndex = sourceIndex
		matches++
	}

	p.findNextNonSpace()
	if p.blank && p.open[matches-1].node.hasFlag(lastLineBlankFlag) {
		// A second consecutive blank line ends all lists.
		matches = p.breakOutOfLists(matches)
	}
	unmatched := len(p.open) - matches
	container := p.open[matches-1]
	matchedBlock := container

	// Step 2: look for new block starts.
	startedNew := false
	lastIndex := p.index
	for container.shouldTryBlockStarts() {
		lastIndex = p.index
		p.findNextNonSpace()
		if p.blank || p.indent < codeBlockIndentLimit && !p.hasExtensionStarters() && !mayStartBlock(p.line[p.nextNonSpace]) {
			p.advanceToIndex(p.nextNonSpace)
			break
		}
		start := p.tryStarts(matchedBlock)
		if start == nil {
			p.advanceToIndex(p.nextNonSpace)
			break
		}
		startedNew = true
		sourceIndex := p.index

		if unmatched > 0 {
			p.closeBlocks(unmatched)
			unmatched = 0
		}
		p.advanceTo(start.index, start.column)
		var replacedSpans []SourceSpan
		if start.replaceActive {
			replacedSpans = p.replaceActive()
		}
		for _, b := range start.blocks {
			p.addChild(b, sourceIndex)
			if replacedSpans != nil {
				b.node.setSpans(replacedSpans)
				replacedSpans = nil
			}
			container = b
			matchedBlock = b
		}
	}

	// Step 3: add the line's remaining text to the tip.
	if !startedNew && !p.blank && unmatched > 0 && p.tip().kind == ParagraphKind {
		// Lazy continuation line.
		for _, b := range p.open[matches:] {
			b.sourceIndex = lastIndex
		}
		p.addLine()
	} else {
		if unmatched > 0 {
			p.closeBlocks(unmatched)
		}
		p.propagateLastLineBlank(container)
		switch {
		case container.acceptsLines():
			p.addLine()
		case !p.blank && container.isContainer():
			para := newOpenBlock(p.doc, ParagraphKind)
			p.addChild(para, p.index)
			p.addLine()
		}
	}
	p.addSourceSpans()
	p.lineNumber++
}

func (p *Parser) hasExtensionStarters() bool {
	return len(p.priorityStarters) > 0 || len(p.blockStarters) > 0
}

// tryStarts runs the block starters on the current position.
func (p *documentParser) tryStarts(matched *openBlock) *blockStart {
	if start := p.tryExtensionStarts(p.priorityStarters, matched); start != nil {
		return start
	}
	for _, f := range blockStarts {
		if start := f(p, matched); start != nil {
			return start
		}
	}
	return p.tryExtensionStarts(p.blockStarters, matched)
}

func (p *documentParser) tryExtensionStarts(starters []BlockStarter, matched *openBlock) *blockStart {
	if len(starters) == 0 {
		return nil
	}
	state := p.lineState(matched)
	for _, bs := range starters {
		ext := bs.TryStart(state)
		if ext == nil {
			continue
		}
		start := &blockStart{
			index:         ext.Index,
			column:        ext.Column,
			replaceActive: ext.ReplaceActive,
		}
		for _, bp := range ext.Parsers {
			start.blocks = append(start.blocks, &openBlock{
				kind: bp.Node().Kind(),
				node: bp.Node(),
				ext:  bp,
			})
		}
		return start
	}
	return nil
}

func (p *documentParser) lineState(matched *openBlock) *LineState {
	state := &LineState{
		Document:     p.doc,
		Line:         p.line,
		LineNumber:   p.lineNumber,
		Index:        p.index,
		Column:       p.column,
		NextNonSpace: p.nextNonSpace,
		Indent:       p.indent,
		Blank:        p.blank,
		Active:       p.tip().node,
	}
	if matched != nil {
		state.Matched = matched.node
		for _, line := range matched.paragraphLines() {
			state.ParagraphLines = append(state.ParagraphLines, line.text)
		}
	}
	return state
}

// breakOutOfLists closes the outermost list among the first matches open blocks
// and everything inside it.
// It returns the new number of matched blocks.
func (p *documentParser) breakOutOfLists(matches int) int {
	for i := 1; i < matches; i++ {
		if p.open[i].kind == ListKind {
			p.closeBlocks(len(p.open) - i)
			return i
		}
	}
	return matches
}

// propagateLastLineBlank records whether the current line is blank
// on the container and all its ancestors.
func (p *documentParser) propagateLastLineBlank(container *openBlock) {
	if p.blank {
		if last := container.node.LastChild(); !last.IsZero() {
			last.setFlag(lastLineBlankFlag, true)
		}
	}
	// Block quote lines are never blank as they start with '>'.
	// Blank lines in fenced code don't affect tightness.
	// An empty list item's first line doesn't count.
	lastLineBlank := p.blank &&
		container.kind != BlockQuoteKind &&
		container.kind != FencedCodeBlockKind &&
		!(container.kind == ListItemKind &&
			container.node.FirstChild().IsZero() &&
			container.startLine == p.lineNumber)
	for n := container.node; !n.IsZero(); n = n.Parent() {
		n.setFlag(lastLineBlankFlag, lastLineBlank)
	}
}

// replaceActive removes the tip from the stack and the tree
// and returns the source spans of its content.
func (p *documentParser) replaceActive() []SourceSpan {
	b := p.tip()
	p.open = p.open[:len(p.open)-1]
	b.finalized = true
	var spans []SourceSpan
	if b.kind == ParagraphKind {
		p.commitDefinitions(b)
		spans = contentSpans(b.refs.paragraph)
	} else {
		spans = b.node.Spans()
	}
	b.node.Unlink()
	return spans
}

// addChild adds b to the tree as a child of the innermost block
// that can contain it, closing blocks that can't.
func (p *documentParser) addChild(b *openBlock, sourceIndex int) {
	for !p.tip().canContain(b.kind) {
		if len(p.open) == 1 {
			panic(fmt.Sprintf("marktree: %v cannot be a child of the document", b.kind))
		}
		p.closeBlocks(1)
	}
	p.tip().node.AppendChild(b.node)
	b.sourceIndex = sourceIndex
	b.startLine = p.lineNumber
	p.open = append(p.open, b)
}

// closeBlocks finalizes and pops the n innermost open blocks.
func (p *documentParser) closeBlocks(n int) {
	for ; n > 0; n-- {
		b := p.tip()
		p.open = p.open[:len(p.open)-1]
		p.finalize(b)
	}
}

// addLine adds the rest of the current line to the tip.
func (p *documentParser) addLine() {
	var text string
	if p.partialTab {
		// Replace the remainder of the tab with spaces.
		spaces := tabStopSize - p.column%tabStopSize
		text = strings.Repeat(" ", spaces) + p.line[p.index+1:]
	} else {
		text = p.line[p.index:]
	}
	p.tip().addLine(contentLine{
		text: text,
		span: SourceSpan{
			Line:   p.lineNumber,
			Column: p.index,
			Length: len(p.line) - p.index,
		},
	})
}

// addSourceSpans attributes the part of the current line
// consumed by each open block to that block.
func (p *documentParser) addSourceSpans() {
	for _, b := range p.open[1:] {
		start := min(b.sourceIndex, p.index)
		if n := len(p.line) - start; n > 0 {
			b.node.AddSpan(SourceSpan{
				Line:   p.lineNumber,
				Column: start,
				Length: n,
			})
		}
	}
}

// findNextNonSpace scans forward from the parse position
// to the first byte that is not a space or tab.
func (p *documentParser) findNextNonSpace() {
	i := p.index
	cols := p.column
	p.blank = true
scan:
	for ; i < len(p.line); i++ {
		switch p.line[i] {
		case ' ':
			cols++
		case '\t':
			cols += tabStopSize - cols%tabStopSize
		default:
			p.blank = false
			break scan
		}
	}
	p.nextNonSpace = i
	p.indent = cols - p.column
}

// at reports whether the first non-space byte is c.
func (p *documentParser) at(c byte) bool {
	return p.nextNonSpace < len(p.line) && p.line[p.nextNonSpace] == c
}

// advanceTo moves to column if it is positive or index otherwise.
func (p *documentParser) advanceTo(index, column int) {
	if column > 0 {
		p.advanceToColumn(column)
	} else {
		p.advanceToIndex(index)
	}
}

func (p *documentParser) advanceToIndex(newIndex int) {
	for p.index < newIndex && p.index < len(p.line) {
		p.advance()
	}
	p.partialTab = false
}

func (p *documentParser) advanceToColumn(newColumn int) {
	for p.column < newColumn && p.index < len(p.line) {
		p.advance()
	}
	if p.column > newColumn {
		// The last byte was a tab and we overshot the target.
		p.index--
		p.column = newColumn
		p.partialTab = true
	} else {
		p.partialTab = false
	}
}

func (p *documentParser) advance() {
	if p.line[p.index] == '\t' {
		p.column += tabStopSize - p.column%tabStopSize
	} else {
		p.column++
	}
	p.index++
}

// consumeBlockQuoteMarker advances past a '>'
// and one optional following space.
func (p *documentParser) consumeBlockQuoteMarker() {
	column := p.column + p.indent + 1
	if i := p.nextNonSpace + 1; i < len(p.line) && isSpaceOrTab(p.line[i]) {
		column++
	}
	p.advanceToColumn(column)
}

// parseInlines runs the inline parser over every paragraph and heading.
//
// This corresponds to [Phase 2]
// in the CommonMark recommended parsing strategy.
//
// [Phase 2]: https://spec.commonmark.org/0.30/#phase-2-inline-structure
func (p *documentParser) parseInlines() {
	var leaves []Node
	Inspect(p.doc.Root(), func(n Node, entering bool) bool {
		if !entering {
			return true
		}
		switch n.Kind() {
		case ParagraphKind, HeadingKind:
			leaves = append(leaves, n)
			return false
		}
		return n.Kind().IsBlock()
	})
	for _, n := range leaves {
		d := n.data()
		lines := d.content
		d.content = nil
		p.parseInlineContent(n, lines)
	}
}
