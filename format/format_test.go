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

package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/marktree"
	"zombiezen.com/go/marktree/ext/frontmatter"
	"zombiezen.com/go/marktree/ext/strikethrough"
	"zombiezen.com/go/marktree/htmlrender"
	"zombiezen.com/go/marktree/internal/normhtml"
	"zombiezen.com/go/marktree/internal/testsuite"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "ATXHeading",
			source: "# Hello\n",
			want:   "# Hello\n",
		},
		{
			name:   "SingleLineSetextHeading",
			source: "Title\n=====\n",
			want:   "# Title\n",
		},
		{
			name:   "MultiLineSetextHeading",
			source: "a\nb\n===\n",
			want:   "a\nb\n===\n",
		},
		{
			name:   "MultiLineSetextHeadingLevel2",
			source: "a\nb\n---\n",
			want:   "a\nb\n---\n",
		},
		{
			name:   "BulletList",
			source: "* a\n* b\n",
			want:   "* a\n* b\n",
		},
		{
			name:   "OrderedList",
			source: "1) x\n2) y\n",
			want:   "1) x\n2) y\n",
		},
		{
			name:   "LooseList",
			source: "- a\n\n- b\n",
			want:   "- a\n\n- b\n",
		},
		{
			name:   "BlockQuote",
			source: ">a\n>\n>   b\n",
			want:   "> a\n>\n> b\n",
		},
		{
			name:   "FencedCode",
			source: "```go\ncode\n```\n",
			want:   "```go\ncode\n```\n",
		},
		{
			name:   "UnclosedFence",
			source: "~~~~\ncode",
			want:   "~~~~\ncode\n~~~~\n",
		},
		{
			name:   "IndentedCode",
			source: "    code\n",
			want:   "    code\n",
		},
		{
			name:   "ThematicBreak",
			source: "___\n",
			want:   "***\n",
		},
		{
			name:   "HardBreak",
			source: "a  \nb\n",
			want:   "a\\\nb\n",
		},
		{
			name:   "Emphasis",
			source: "_a_ __b__\n",
			want:   "*a* **b**\n",
		},
		{
			name:   "CodeSpan",
			source: "`` a`b ``\n",
			want:   "``a`b``\n",
		},
		{
			name:   "Autolink",
			source: "<http://a.b>\n",
			want:   "<http://a.b>\n",
		},
		{
			name:   "EscapedHeading",
			source: "\\# not heading\n",
			want:   "\\# not heading\n",
		},
		{
			name:   "EscapedOrderedList",
			source: "1\\. not list\n",
			want:   "1\\. not list\n",
		},
		{
			name:   "EscapedText",
			source: "a \\*b\\* \\[c\\]\n",
			want:   "a \\*b\\* \\[c\\]\n",
		},
		{
			name:   "LinkDestinationWithSpace",
			source: "[a](</my url> 'title')\n",
			want:   "[a](</my url> \"title\")\n",
		},
		{
			name:   "EmptyDestination",
			source: "[a]()\n",
			want:   "[a](<>)\n",
		},
		{
			name:   "Image",
			source: "![img](x.png)\n",
			want:   "![img](x.png)\n",
		},
		{
			name:   "FullReference",
			source: "[x][Foo]\n\n[Foo]: /url 'the title'\n",
			want:   "[x][foo]\n\n[Foo]: /url \"the title\"\n",
		},
		{
			name:   "HTMLBlock",
			source: "<div>\nhi\n</div>\n",
			want:   "<div>\nhi\n</div>\n",
		},
		{
			name:   "NestedList",
			source: "- a\n  - b\n",
			want:   "- a\n  - b\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := marktree.Parse([]byte(test.source))
			got := new(strings.Builder)
			if err := Format(got, doc); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got.String()); diff != "" {
				t.Errorf("Format(Parse(%q)) (-want +got):\n%s", test.source, diff)
			}
		})
	}
}

func TestFormatExtensions(t *testing.T) {
	p, err := marktree.NewParser(frontmatter.Extend(strikethrough.Extend(nil)))
	if err != nil {
		t.Fatal(err)
	}
	const source = "---\ntitle: x\n---\n\n~~a~~ b\n"
	got := new(strings.Builder)
	if err := Format(got, p.Parse([]byte(source))); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(source, got.String()); diff != "" {
		t.Errorf("Format(Parse(%q)) (-want +got):\n%s", source, diff)
	}
}

func FuzzFormat(f *testing.F) {
	seeds := []string{
		"",
		"Hello, World!\n",
		"# Heading\n\nSetext\n---\n",
		"- a\n- b\n\n  c\n",
		"1. one\n1. two\n",
		"> quote\n> > nested\n",
		"```\ncode\n```\n",
		"    indented\n",
		"*a* **b** `c` <http://d.e>\n",
		"[link](/url \"title\") ![img](/src)\n",
		"[ref]\n\n[ref]: /url\n",
		"<div>\nhtml\n</div>\n",
		"a  \nb\\\nc\n",
		"- a\n\n\n- b\n",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	cases, err := testsuite.Load()
	if err != nil {
		f.Fatal(err)
	}
	for _, c := range cases {
		f.Add(c.Markdown)
	}

	f.Fuzz(func(t *testing.T, markdown string) {
		doc := marktree.Parse([]byte(markdown))
		originalHTML := new(bytes.Buffer)
		if err := htmlrender.Render(originalHTML, doc); err != nil {
			t.Fatal("Render original HTML:", err)
		}

		got := new(bytes.Buffer)
		if err := Format(got, doc); err != nil {
			t.Error("Format #1:", err)
		}

		formattedDoc := marktree.Parse(got.Bytes())
		formattedHTML := new(bytes.Buffer)
		if err := htmlrender.Render(formattedHTML, formattedDoc); err != nil {
			t.Error("Render formatted HTML:", err)
		} else {
			diff := cmp.Diff(string(normhtml.Normalize(originalHTML.Bytes())), string(normhtml.Normalize(formattedHTML.Bytes())))
			if diff != "" {
				t.Skipf("Reformatting changed semantics. Original:\n%s\nReformatting:\n%s\nHTML diff (-want +got):\n%s", markdown, got, diff)
			}
		}

		reformatted := new(bytes.Buffer)
		if err := Format(reformatted, formattedDoc); err != nil {
			t.Error("Format #2:", err)
		}
		if diff := cmp.Diff(got.String(), reformatted.String()); diff != "" {
			t.Errorf("Format not idempotent (-first +second):\n%s", diff)
		}
	})
}

func TestWriteTrimmedIndent(t *testing.T) {
	tests := []struct {
		indents []string
		want    string
	}{
		{[]string{}, ""},
		{[]string{""}, ""},
		{[]string{" \t "}, ""},
		{[]string{"> "}, ">"},
		{[]string{"> ", "> "}, "> >"},
		{[]string{"> ", "> ", "  "}, "> >"},
	}
	for _, test := range tests {
		got := new(strings.Builder)
		if err := writeTrimmedIndent(got, test.indents); got.String() != test.want || err != nil {
			t.Errorf("writeTrimmedIndent(buf, %q) = %q, %v; want %q, <nil>",
				test.indents, got, err, test.want)
		}
	}
}
