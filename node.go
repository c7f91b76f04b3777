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

import "fmt"

// A Document is the root of a parse tree.
// It owns the storage of every node in the tree:
// nodes refer to each other by index,
// so a [Node] handle is only meaningful together with its Document.
type Document struct {
	nodes []nodeData
	refs  ReferenceMap
}

// nodeIndex is an index into [Document.nodes].
// Zero is reserved to mean "no node".
type nodeIndex int32

const rootIndex nodeIndex = 1

type nodeFlags uint8

const (
	tightFlag nodeFlags = 1 << iota
	titlePresentFlag
	setextFlag
	autolinkFlag
	lastLineBlankFlag
	// endsBlankFlag is set on finalized lists and list items
	// whose last descendant line was blank.
	endsBlankFlag
)

type nodeData struct {
	kind   Kind
	parent nodeIndex
	first  nodeIndex
	last   nodeIndex
	prev   nodeIndex
	next   nodeIndex
	flags  nodeFlags

	// Payload. Which fields are used depends on kind.
	literal     string
	info        string
	destination string
	title       string
	label       string
	level       int // heading level or list start
	marker      byte
	delim       byte
	fenceLength int
	fenceIndent int
	data        any

	spans []SourceSpan

	// content holds the lines of a paragraph or heading
	// between block finalization and inline parsing.
	content []contentLine
}

// NewDocument returns a new document containing only its root node.
func NewDocument() *Document {
	doc := &Document{
		nodes: make([]nodeData, 2, 64),
	}
	doc.nodes[rootIndex].kind = DocumentKind
	return doc
}

// References returns the link reference definitions
// collected while parsing the document.
// The first definition of a label takes precedence.
func (doc *Document) References() ReferenceMap {
	return doc.refs
}

// Root returns the document's root node,
// which is always of [DocumentKind].
func (doc *Document) Root() Node {
	return Node{doc: doc, i: rootIndex}
}

// NewNode allocates a new node of the given kind.
// The node is not attached to the tree.
func (doc *Document) NewNode(kind Kind) Node {
	if kind == DocumentKind || kind.String() == "" {
		panic(fmt.Sprintf("marktree: cannot create node of kind %v", kind))
	}
	doc.nodes = append(doc.nodes, nodeData{kind: kind})
	return Node{doc: doc, i: nodeIndex(len(doc.nodes) - 1)}
}

// Node is a handle to an element of a [Document].
// The zero value is a null handle:
// its accessors return zero values
// and its setters panic.
// Nodes can be compared for equality using the == operator.
type Node struct {
	doc *Document
	i   nodeIndex
}

// IsZero reports whether n is the null handle.
func (n Node) IsZero() bool {
	return n.doc == nil || n.i == 0
}

func (n Node) data() *nodeData {
	if n.IsZero() {
		return nil
	}
	return &n.doc.nodes[n.i]
}

// mustData is like data but panics on the null handle.
func (n Node) mustData(method string) *nodeData {
	if n.IsZero() {
		panic("marktree: " + method + " called on null node")
	}
	return &n.doc.nodes[n.i]
}

func (n Node) at(i nodeIndex) Node {
	if i == 0 {
		return Node{}
	}
	return Node{doc: n.doc, i: i}
}

// Document returns the document that owns the node.
func (n Node) Document() *Document {
	return n.doc
}

// Kind returns the type of the node
// or zero if the handle is null.
func (n Node) Kind() Kind {
	if d := n.data(); d != nil {
		return d.kind
	}
	return 0
}

// Parent returns the node's parent
// or the null handle if the node is the root or is detached.
func (n Node) Parent() Node {
	if d := n.data(); d != nil {
		return n.at(d.parent)
	}
	return Node{}
}

// FirstChild returns the node's first child, if any.
func (n Node) FirstChild() Node {
	if d := n.data(); d != nil {
		return n.at(d.first)
	}
	return Node{}
}

// LastChild returns the node's last child, if any.
func (n Node) LastChild() Node {
	if d := n.data(); d != nil {
		return n.at(d.last)
	}
	return Node{}
}

// Next returns the node's next sibling, if any.
func (n Node) Next() Node {
	if d := n.data(); d != nil {
		return n.at(d.next)
	}
	return Node{}
}

// Prev returns the node's previous sibling, if any.
func (n Node) Prev() Node {
	if d := n.data(); d != nil {
		return n.at(d.prev)
	}
	return Node{}
}

// ChildCount returns the number of children the node has.
// It takes time proportional to the number of children.
func (n Node) ChildCount() int {
	count := 0
	for c := n.FirstChild(); !c.IsZero(); c = c.Next() {
		count++
	}
	return count
}

// Children returns a new slice of the node's children.
func (n Node) Children() []Node {
	var children []Node
	for c := n.FirstChild(); !c.IsZero(); c = c.Next() {
		children = append(children, c)
	}
	return children
}

// AppendChild makes child the last child of n,
// first detaching child from wherever it was in the tree.
// child must not be an ancestor of n.
func (n Node) AppendChild(child Node) {
	n.checkChild(child)
	child.Unlink()
	nd, cd := n.data(), child.data()
	cd.parent = n.i
	if nd.last != 0 {
		n.doc.nodes[nd.last].next = child.i
		cd.prev = nd.last
	} else {
		nd.first = child.i
	}
	nd.last = child.i
}

// PrependChild makes child the first child of n,
// first detaching child from wherever it was in the tree.
func (n Node) PrependChild(child Node) {
	n.checkChild(child)
	child.Unlink()
	nd, cd := n.data(), child.data()
	cd.parent = n.i
	if nd.first != 0 {
		n.doc.nodes[nd.first].prev = child.i
		cd.next = nd.first
	} else {
		nd.last = child.i
	}
	nd.first = child.i
}

// InsertBefore places sibling immediately before n,
// first detaching sibling from wherever it was in the tree.
// n must have a parent.
func (n Node) InsertBefore(sibling Node) {
	if sibling == n {
		return
	}
	parent := n.Parent()
	if parent.IsZero() {
		panic("marktree: InsertBefore on node without parent")
	}
	parent.checkChild(sibling)
	sibling.Unlink()
	nd, sd := n.data(), sibling.data()
	sd.parent = nd.parent
	sd.next = n.i
	sd.prev = nd.prev
	if nd.prev != 0 {
		n.doc.nodes[nd.prev].next = sibling.i
	} else {
		parent.data().first = sibling.i
	}
	nd.prev = sibling.i
}

// InsertAfter places sibling immediately after n,
// first detaching sibling from wherever it was in the tree.
// n must have a parent.
func (n Node) InsertAfter(sibling Node) {
	if sibling == n {
		return
	}
	parent := n.Parent()
	if parent.IsZero() {
		panic("marktree: InsertAfter on node without parent")
	}
	parent.checkChild(sibling)
	sibling.Unlink()
	nd, sd := n.data(), sibling.data()
	sd.parent = nd.parent
	sd.prev = n.i
	sd.next = nd.next
	if nd.next != 0 {
		n.doc.nodes[nd.next].prev = sibling.i
	} else {
		parent.data().last = sibling.i
	}
	nd.next = sibling.i
}

// Unlink detaches n (and its descendants) from its parent and siblings.
// Unlinking a detached node is a no-op.
func (n Node) Unlink() {
	nd := n.data()
	if nd == nil {
		return
	}
	if nd.prev != 0 {
		n.doc.nodes[nd.prev].next = nd.next
	} else if nd.parent != 0 {
		n.doc.nodes[nd.parent].first = nd.next
	}
	if nd.next != 0 {
		n.doc.nodes[nd.next].prev = nd.prev
	} else if nd.parent != 0 {
		n.doc.nodes[nd.parent].last = nd.prev
	}
	nd.parent = 0
	nd.prev = 0
	nd.next = 0
}

// checkChild panics if child may not be placed under n.
func (n Node) checkChild(child Node) {
	if n.IsZero() || child.IsZero() {
		panic("marktree: null node")
	}
	if n.doc != child.doc {
		panic("marktree: nodes belong to different documents")
	}
	if child.i == rootIndex {
		panic("marktree: document root cannot be a child")
	}
	for a := n.i; a != 0; a = n.doc.nodes[a].parent {
		if a == child.i {
			panic("marktree: node cannot become a descendant of itself")
		}
	}
	pk, ck := n.Kind(), child.Kind()
	switch {
	case ck.IsBlock() && !pk.IsBlock():
		panic(fmt.Sprintf("marktree: %v cannot be the child of %v", ck, pk))
	case ck.IsInline() && pk.IsContainer():
		panic(fmt.Sprintf("marktree: %v cannot be the child of container %v", ck, pk))
	}
}

func (n Node) hasFlag(f nodeFlags) bool {
	d := n.data()
	return d != nil && d.flags&f != 0
}

func (n Node) setFlag(f nodeFlags, v bool) {
	d := n.mustData("setFlag")
	if v {
		d.flags |= f
	} else {
		d.flags &^= f
	}
}

// Literal returns the text content of a
// [TextKind], [CodeSpanKind], [RawHTMLKind], [HTMLBlockKind],
// [FencedCodeBlockKind], or [IndentedCodeBlockKind] node.
// For code blocks, every line (including the last) ends with a newline.
func (n Node) Literal() string {
	if d := n.data(); d != nil {
		return d.literal
	}
	return ""
}

// SetLiteral replaces the node's literal text.
func (n Node) SetLiteral(s string) {
	n.mustData("SetLiteral").literal = s
}

// HeadingLevel returns the level (1-6) of a [HeadingKind] node
// or zero for other nodes.
func (n Node) HeadingLevel() int {
	if n.Kind() != HeadingKind {
		return 0
	}
	return n.data().level
}

// IsSetextHeading reports whether the node is a heading
// written with an underline.
func (n Node) IsSetextHeading() bool {
	return n.Kind() == HeadingKind && n.hasFlag(setextFlag)
}

// IsOrderedList reports whether the node is an ordered [ListKind] node
// or an item of one.
func (n Node) IsOrderedList() bool {
	switch n.Kind() {
	case ListKind:
		return n.data().delim != 0
	case ListItemKind:
		return n.Parent().IsOrderedList()
	default:
		return false
	}
}

// IsTightList reports whether the node is a tight [ListKind] node
// or an item of one.
func (n Node) IsTightList() bool {
	switch n.Kind() {
	case ListKind:
		return n.hasFlag(tightFlag)
	case ListItemKind:
		return n.Parent().IsTightList()
	default:
		return false
	}
}

// ListBulletChar returns the marker character ('-', '+', or '*')
// of a bullet [ListKind] node or zero for other nodes.
func (n Node) ListBulletChar() byte {
	if n.Kind() != ListKind || n.data().delim != 0 {
		return 0
	}
	return n.data().marker
}

// ListDelimiter returns the character ('.' or ')')
// following the numbers of an ordered [ListKind] node
// or zero for other nodes.
func (n Node) ListDelimiter() byte {
	if n.Kind() != ListKind {
		return 0
	}
	return n.data().delim
}

// ListStart returns the number of the first item of an ordered [ListKind] node.
func (n Node) ListStart() int {
	if n.Kind() != ListKind {
		return 0
	}
	return n.data().level
}

// FenceChar returns the character ('`' or '~') of a [FencedCodeBlockKind] node.
func (n Node) FenceChar() byte {
	if n.Kind() != FencedCodeBlockKind {
		return 0
	}
	return n.data().marker
}

// FenceLength returns the length of the opening fence
// of a [FencedCodeBlockKind] node.
func (n Node) FenceLength() int {
	if n.Kind() != FencedCodeBlockKind {
		return 0
	}
	return n.data().fenceLength
}

// FenceIndent returns the indentation of the opening fence
// of a [FencedCodeBlockKind] node.
func (n Node) FenceIndent() int {
	if n.Kind() != FencedCodeBlockKind {
		return 0
	}
	return n.data().fenceIndent
}

// Info returns the unescaped info string of a [FencedCodeBlockKind] node.
func (n Node) Info() string {
	if n.Kind() != FencedCodeBlockKind {
		return ""
	}
	return n.data().info
}

// Destination returns the unescaped destination of a
// [LinkKind], [ImageKind], or [LinkReferenceDefinitionKind] node.
func (n Node) Destination() string {
	if d := n.data(); d != nil {
		return d.destination
	}
	return ""
}

// Title returns the unescaped title of a
// [LinkKind], [ImageKind], or [LinkReferenceDefinitionKind] node.
func (n Node) Title() string {
	if d := n.data(); d != nil {
		return d.title
	}
	return ""
}

// TitlePresent reports whether the link or definition had a title,
// which distinguishes an empty title from a missing one.
func (n Node) TitlePresent() bool {
	return n.hasFlag(titlePresentFlag)
}

// Label returns the label of a [LinkReferenceDefinitionKind] node as written,
// or the normalized label that a reference [LinkKind] or [ImageKind] node resolved.
// Inline links and autolinks have no label.
func (n Node) Label() string {
	if d := n.data(); d != nil {
		return d.label
	}
	return ""
}

// IsAutolink reports whether the node is a [LinkKind] node
// written as an autolink (e.g. <https://example.com>).
func (n Node) IsAutolink() bool {
	return n.Kind() == LinkKind && n.hasFlag(autolinkFlag)
}

// SetLink sets the destination and title of a link, image, or definition node.
func (n Node) SetLink(def LinkDefinition) {
	d := n.mustData("SetLink")
	d.destination = def.Destination
	d.title = def.Title
	n.setFlag(titlePresentFlag, def.TitlePresent)
}

// Data returns the value attached to a
// [CustomBlockKind] or [CustomInlineKind] node by its extension.
func (n Node) Data() any {
	if d := n.data(); d != nil {
		return d.data
	}
	return nil
}

// SetData attaches an extension value to the node.
func (n Node) SetData(v any) {
	n.mustData("SetData").data = v
}

// Spans returns the source positions the node was parsed from.
// The caller must not modify the returned slice.
func (n Node) Spans() []SourceSpan {
	if d := n.data(); d != nil {
		return d.spans
	}
	return nil
}

// AddSpan appends a source position to the node.
// Adjacent spans on the same line are merged.
func (n Node) AddSpan(span SourceSpan) {
	d := n.mustData("AddSpan")
	if k := len(d.spans); k > 0 {
		last := &d.spans[k-1]
		if last.Line == span.Line && last.Column+last.Length == span.Column {
			last.Length += span.Length
			return
		}
	}
	d.spans = append(d.spans, span)
}

func (n Node) setSpans(spans []SourceSpan) {
	n.data().spans = spans
}

func (n Node) String() string {
	if n.IsZero() {
		return "Node(nil)"
	}
	return fmt.Sprintf("%v#%d", n.Kind(), n.i)
}

// SourceSpan is a contiguous range of a single source line.
type SourceSpan struct {
	// Line is the 0-based line number.
	Line int
	// Column is the 0-based byte offset of the span's start within the line.
	Column int
	// Length is the number of bytes in the span.
	Length int
}

func (span SourceSpan) String() string {
	return fmt.Sprintf("%d:%d+%d", span.Line, span.Column, span.Length)
}

// Kind is an enumeration of node types.
type Kind uint16

// Block kinds.
const (
	DocumentKind Kind = 1 + iota
	BlockQuoteKind
	ListKind
	ListItemKind
	ParagraphKind
	HeadingKind
	FencedCodeBlockKind
	IndentedCodeBlockKind
	ThematicBreakKind
	HTMLBlockKind
	LinkReferenceDefinitionKind
	// CustomBlockKind is used for blocks created by a [BlockStarter].
	CustomBlockKind
)

// Inline kinds.
const (
	TextKind Kind = 32 + iota
	SoftLineBreakKind
	HardLineBreakKind
	EmphasisKind
	StrongKind
	CodeSpanKind
	RawHTMLKind
	LinkKind
	ImageKind
	// CustomInlineKind is used for nodes created by a [DelimiterProcessor].
	CustomInlineKind
)

var kindNames = map[Kind]string{
	DocumentKind:                "Document",
	BlockQuoteKind:              "BlockQuote",
	ListKind:                    "List",
	ListItemKind:                "ListItem",
	ParagraphKind:               "Paragraph",
	HeadingKind:                 "Heading",
	FencedCodeBlockKind:         "FencedCodeBlock",
	IndentedCodeBlockKind:       "IndentedCodeBlock",
	ThematicBreakKind:           "ThematicBreak",
	HTMLBlockKind:               "HTMLBlock",
	LinkReferenceDefinitionKind: "LinkReferenceDefinition",
	CustomBlockKind:             "CustomBlock",
	TextKind:                    "Text",
	SoftLineBreakKind:           "SoftLineBreak",
	HardLineBreakKind:           "HardLineBreak",
	EmphasisKind:                "Emphasis",
	StrongKind:                  "Strong",
	CodeSpanKind:                "CodeSpan",
	RawHTMLKind:                 "RawHTML",
	LinkKind:                    "Link",
	ImageKind:                   "Image",
	CustomInlineKind:            "CustomInline",
}

func (k Kind) String() string {
	return kindNames[k]
}

// IsBlock reports whether k is a block kind.
func (k Kind) IsBlock() bool {
	return DocumentKind <= k && k <= CustomBlockKind
}

// IsInline reports whether k is an inline kind.
func (k Kind) IsInline() bool {
	return TextKind <= k && k <= CustomInlineKind
}

// IsContainer reports whether k is a block kind
// that holds other blocks rather than text.
func (k Kind) IsContainer() bool {
	switch k {
	case DocumentKind, BlockQuoteKind, ListKind, ListItemKind:
		return true
	default:
		return false
	}
}
