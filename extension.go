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

// LineState is a snapshot of the block parser's position on the current line,
// passed to extension block parsers.
type LineState struct {
	// Document is the document being built.
	// Extensions use it to allocate nodes.
	Document *Document
	// Line is the current line without its line ending.
	Line string
	// LineNumber is the 0-based index of Line in the input.
	LineNumber int
	// Index is the byte offset of the parse position in Line.
	Index int
	// Column is the column of the parse position, with tabs expanded.
	Column int
	// NextNonSpace is the byte offset of the first byte at or after Index
	// that is not a space or tab.
	NextNonSpace int
	// Indent is the number of columns between Column and NextNonSpace.
	Indent int
	// Blank is true if the rest of the line consists of spaces and tabs.
	Blank bool
	// Active is the innermost open block.
	Active Node
	// Matched is the innermost block that continued on this line.
	// New blocks are started as its children.
	Matched Node
	// ParagraphLines holds the content lines of Matched
	// if it is a paragraph, excluding link reference definitions.
	ParagraphLines []string
}

// A BlockStarter recognizes the first line of a block type
// that the built-in grammar does not know about.
// Block starters are tried after the built-in block starts
// unless registered in [Options.PriorityBlockStarters].
type BlockStarter interface {
	// TryStart returns nil if no block starts on the current line.
	TryStart(state *LineState) *BlockStart
}

// BlockStart describes blocks opened by a [BlockStarter].
type BlockStart struct {
	// Parsers are the new blocks, from outermost to innermost.
	// Each is appended as the child of the previous one.
	Parsers []BlockParser
	// Index is the byte offset in the line that the parse position moves to.
	Index int
	// If Column is greater than zero,
	// then the parse position moves to that column instead of Index.
	// This permits stopping partway through a tab.
	Column int
	// If ReplaceActive is true, the active block
	// (typically a paragraph being interrupted)
	// is removed from the tree before the new blocks are added.
	// The active block's source spans carry over to the new blocks.
	ReplaceActive bool
}

// Continue is the result of [BlockParser.TryContinue].
type Continue struct {
	// Matched is true if the block continues on the current line.
	Matched bool
	// Finished is true if the line completes the block.
	// The block is closed and the rest of the line is ignored.
	Finished bool
	// Index and Column advance the parse position
	// as in [BlockStart].
	Index  int
	Column int
}

// A BlockParser accumulates a block created by a [BlockStarter].
type BlockParser interface {
	// Node returns the block's node.
	Node() Node
	// IsContainer reports whether the block holds other blocks.
	IsContainer() bool
	// CanContain reports whether a block of the given kind
	// may be a direct child of this block.
	CanContain(child Kind) bool
	// TryContinue reports whether the block continues on the current line.
	TryContinue(state *LineState) Continue
	// AcceptsLines reports whether lines are passed to AddLine.
	AcceptsLines() bool
	// AddLine receives the remainder of a line that belongs to the block.
	AddLine(line string)
	// Finalize is called when the block is closed.
	Finalize()
}

// DelimiterRun describes one side of a candidate
// pair of delimiter runs passed to a [DelimiterProcessor].
type DelimiterRun struct {
	// Len is the number of delimiter characters not yet used.
	Len int
	// OriginalLen is the length of the run as written.
	OriginalLen int
	CanOpen     bool
	CanClose    bool
}

// A DelimiterProcessor implements an inline syntax
// that wraps text between runs of a single delimiter character,
// in the manner of emphasis.
type DelimiterProcessor interface {
	// Char returns the delimiter character.
	// It must be ASCII punctuation.
	Char() byte
	// MinLength returns the length a run must have to be a delimiter.
	MinLength() int
	// Process returns the number of characters to use from both runs.
	// Results less than 1 are treated as 1.
	Process(opener, closer DelimiterRun) int
	// Wrap returns a new detached node that will hold the nodes
	// between the opener and closer.
	Wrap(doc *Document, n int) Node
}

// A DelimiterFlanker is a [DelimiterProcessor]
// that decides for itself whether a run can open or close.
// Without it, runs follow the rules of '*' emphasis.
type DelimiterFlanker interface {
	CanOpenClose(before, after rune, leftFlanking, rightFlanking bool) (canOpen, canClose bool)
}
