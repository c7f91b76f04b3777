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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNodeTreeOps(t *testing.T) {
	doc := NewDocument()
	para := doc.NewNode(ParagraphKind)
	doc.Root().AppendChild(para)
	a := doc.NewNode(TextKind)
	a.SetLiteral("a")
	b := doc.NewNode(TextKind)
	b.SetLiteral("b")
	c := doc.NewNode(TextKind)
	c.SetLiteral("c")

	para.AppendChild(b)
	para.PrependChild(a)
	b.InsertAfter(c)
	if got, want := dumpTree(doc.Root()), `Document[Paragraph[Text("a") Text("b") Text("c")]]`; got != want {
		t.Errorf("after building tree: %s; want %s", got, want)
	}
	if got := para.ChildCount(); got != 3 {
		t.Errorf("para.ChildCount() = %d; want 3", got)
	}

	c.Unlink()
	a.InsertBefore(c)
	if got, want := dumpTree(doc.Root()), `Document[Paragraph[Text("c") Text("a") Text("b")]]`; got != want {
		t.Errorf("after moving c: %s; want %s", got, want)
	}
	if got := c.Prev(); !got.IsZero() {
		t.Errorf("c.Prev() = %v; want null", got)
	}
	if got := para.FirstChild(); got != c {
		t.Errorf("para.FirstChild() = %v; want %v", got, c)
	}

	b.Unlink()
	if got := para.LastChild(); got != a {
		t.Errorf("after unlinking b, para.LastChild() = %v; want %v", got, a)
	}
	if got := b.Parent(); !got.IsZero() {
		t.Errorf("after unlinking b, b.Parent() = %v; want null", got)
	}
	b.Unlink()

	want := []Node{c, a}
	if diff := cmp.Diff(want, para.Children(), cmp.Comparer(func(n1, n2 Node) bool { return n1 == n2 })); diff != "" {
		t.Errorf("para.Children() (-want +got):\n%s", diff)
	}
}

func TestNullNode(t *testing.T) {
	var n Node
	if !n.IsZero() {
		t.Error("Node{}.IsZero() = false")
	}
	if got := n.Kind(); got != 0 {
		t.Errorf("Node{}.Kind() = %v; want 0", got)
	}
	if got := n.Literal(); got != "" {
		t.Errorf("Node{}.Literal() = %q; want \"\"", got)
	}
	if got := n.FirstChild(); !got.IsZero() {
		t.Errorf("Node{}.FirstChild() = %v; want null", got)
	}
	if got := n.String(); got != "Node(nil)" {
		t.Errorf("Node{}.String() = %q; want \"Node(nil)\"", got)
	}
	n.Unlink()
}

func TestNodePanics(t *testing.T) {
	tests := []struct {
		name string
		f    func(doc *Document)
	}{
		{
			name: "BlockInInline",
			f: func(doc *Document) {
				doc.NewNode(EmphasisKind).AppendChild(doc.NewNode(ParagraphKind))
			},
		},
		{
			name: "InlineInContainer",
			f: func(doc *Document) {
				doc.Root().AppendChild(doc.NewNode(TextKind))
			},
		},
		{
			name: "RootAsChild",
			f: func(doc *Document) {
				doc.NewNode(BlockQuoteKind).AppendChild(doc.Root())
			},
		},
		{
			name: "OtherDocument",
			f: func(doc *Document) {
				doc.Root().AppendChild(NewDocument().NewNode(ParagraphKind))
			},
		},
		{
			name: "InsertBeforeWithoutParent",
			f: func(doc *Document) {
				doc.NewNode(ParagraphKind).InsertBefore(doc.NewNode(ParagraphKind))
			},
		},
		{
			name: "NewDocumentKind",
			f: func(doc *Document) {
				doc.NewNode(DocumentKind)
			},
		},
		{
			name: "AppendSelf",
			f: func(doc *Document) {
				q := doc.NewNode(BlockQuoteKind)
				q.AppendChild(q)
			},
		},
		{
			name: "AppendAncestor",
			f: func(doc *Document) {
				outer := Parse([]byte("> > a")).Root().FirstChild()
				outer.FirstChild().AppendChild(outer)
			},
		},
		{
			name: "PrependAncestor",
			f: func(doc *Document) {
				outer := Parse([]byte("> > a")).Root().FirstChild()
				outer.FirstChild().FirstChild().PrependChild(outer)
			},
		},
		{
			name: "InsertParentAfterChild",
			f: func(doc *Document) {
				quote := Parse([]byte("> a")).Root().FirstChild()
				quote.FirstChild().InsertAfter(quote)
			},
		},
		{
			name: "SetLiteralOnNull",
			f: func(doc *Document) {
				Node{}.SetLiteral("x")
			},
		},
		{
			name: "SetLinkOnNull",
			f: func(doc *Document) {
				Node{}.SetLink(LinkDefinition{Destination: "/x"})
			},
		},
		{
			name: "SetDataOnNull",
			f: func(doc *Document) {
				Node{}.SetData(1)
			},
		},
		{
			name: "AddSpanOnNull",
			f: func(doc *Document) {
				Node{}.AddSpan(SourceSpan{Length: 1})
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				v := recover()
				if v == nil {
					t.Error("did not panic")
					return
				}
				if msg, ok := v.(string); !ok || !strings.HasPrefix(msg, "marktree: ") {
					t.Errorf("panic value = %#v; want a string starting with %q", v, "marktree: ")
				}
			}()
			test.f(NewDocument())
		})
	}
}

func TestAddSpan(t *testing.T) {
	doc := NewDocument()
	n := doc.NewNode(ParagraphKind)
	n.AddSpan(SourceSpan{Line: 0, Column: 0, Length: 2})
	n.AddSpan(SourceSpan{Line: 0, Column: 2, Length: 3})
	n.AddSpan(SourceSpan{Line: 1, Column: 0, Length: 4})
	n.AddSpan(SourceSpan{Line: 1, Column: 5, Length: 1})
	want := []SourceSpan{
		{Line: 0, Column: 0, Length: 5},
		{Line: 1, Column: 0, Length: 4},
		{Line: 1, Column: 5, Length: 1},
	}
	if diff := cmp.Diff(want, n.Spans()); diff != "" {
		t.Errorf("spans (-want +got):\n%s", diff)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		k         Kind
		name      string
		block     bool
		inline    bool
		container bool
	}{
		{DocumentKind, "Document", true, false, true},
		{ListItemKind, "ListItem", true, false, true},
		{ParagraphKind, "Paragraph", true, false, false},
		{CustomBlockKind, "CustomBlock", true, false, false},
		{TextKind, "Text", false, true, false},
		{CustomInlineKind, "CustomInline", false, true, false},
	}
	for _, test := range tests {
		if got := test.k.String(); got != test.name {
			t.Errorf("Kind(%d).String() = %q; want %q", test.k, got, test.name)
		}
		if got := test.k.IsBlock(); got != test.block {
			t.Errorf("%v.IsBlock() = %t; want %t", test.k, got, test.block)
		}
		if got := test.k.IsInline(); got != test.inline {
			t.Errorf("%v.IsInline() = %t; want %t", test.k, got, test.inline)
		}
		if got := test.k.IsContainer(); got != test.container {
			t.Errorf("%v.IsContainer() = %t; want %t", test.k, got, test.container)
		}
	}
}
