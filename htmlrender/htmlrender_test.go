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

package htmlrender

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"zombiezen.com/go/marktree"
	"zombiezen.com/go/marktree/ext/strikethrough"
	"zombiezen.com/go/marktree/internal/normhtml"
	"zombiezen.com/go/marktree/internal/testsuite"
)

func TestConformance(t *testing.T) {
	cases, err := testsuite.Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range cases {
		t.Run(fmt.Sprintf("Example%d", test.Example), func(t *testing.T) {
			doc := marktree.Parse([]byte(test.Markdown))
			buf := new(bytes.Buffer)
			if err := Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			got := string(normhtml.Normalize(buf.Bytes()))
			want := normhtml.String(test.HTML)
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("%s\nInput:\n%s\nOutput (-want +got):\n%s", test.Section, test.Markdown, diff)
			}
		})
	}
}

func TestSoftBreakBehavior(t *testing.T) {
	tests := []struct {
		name     string
		behavior SoftBreakBehavior
		input    string
		want     string
	}{
		{
			name:     "PreserveLF",
			behavior: SoftBreakPreserve,
			input:    "Hello\nWorld!",
			want:     "<p>Hello\nWorld!</p>\n",
		},
		{
			name:     "PreserveCRLF",
			behavior: SoftBreakPreserve,
			input:    "Hello\r\nWorld!",
			want:     "<p>Hello\nWorld!</p>\n",
		},
		{
			name:     "Space",
			behavior: SoftBreakSpace,
			input:    "Hello\r\nWorld!",
			want:     "<p>Hello World!</p>\n",
		},
		{
			name:     "Harden",
			behavior: SoftBreakHarden,
			input:    "Hello\r\nWorld!",
			want:     "<p>Hello<br />\nWorld!</p>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := marktree.Parse([]byte(test.input))
			r := &Renderer{SoftBreakBehavior: test.behavior}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			if got := buf.String(); got != test.want {
				t.Errorf("output = %q; want %q", got, test.want)
			}
		})
	}
}

func TestIgnoreRaw(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "NoRaw",
			input: "Hello World!",
			want:  "<p>Hello World!</p>\n",
		},
		{
			name:  "MarkdownStrong",
			input: "Hello **World**!",
			want:  "<p>Hello <strong>World</strong>!</p>\n",
		},
		{
			name:  "HTMLStrong",
			input: "Hello <strong>World</strong>!",
			want:  "<p>Hello World!</p>\n",
		},
		{
			name:  "HTMLBlock",
			input: "<table>\n<tr><td>Hello</td></tr>\n</table>",
			want:  "",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := marktree.Parse([]byte(test.input))
			r := &Renderer{IgnoreRaw: true}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			if got := buf.String(); got != test.want {
				t.Errorf("output = %q; want %q", got, test.want)
			}
		})
	}
}

func TestFilterTag(t *testing.T) {
	const input = "<strong> <title> <style> <em>\n\n" +
		"<blockquote>\n" +
		"  <xmp> is disallowed.  <XMP> is also disallowed.\n" +
		"</blockquote>\n"
	tests := []struct {
		name      string
		filterTag func(tag []byte) bool
		want      string
	}{
		{
			name:      "GFM",
			filterTag: FilterTagGFM,
			want: "<p><strong> &lt;title> &lt;style> <em></p>\n" +
				"<blockquote>\n" +
				"  &lt;xmp> is disallowed.  &lt;XMP> is also disallowed.\n" +
				"</blockquote>\n",
		},
		{
			name: "NoFilter",
			want: "<p><strong> <title> <style> <em></p>\n" +
				"<blockquote>\n" +
				"  <xmp> is disallowed.  <XMP> is also disallowed.\n" +
				"</blockquote>\n",
		},
		{
			name:      "AllowAll",
			filterTag: func(tag []byte) bool { return false },
			want: "<p><strong> <title> <style> <em></p>\n" +
				"<blockquote>\n" +
				"  <xmp> is disallowed.  <XMP> is also disallowed.\n" +
				"</blockquote>\n",
		},
		{
			name:      "FilterAll",
			filterTag: func(tag []byte) bool { return true },
			want: "<p>&lt;strong> &lt;title> &lt;style> &lt;em></p>\n" +
				"&lt;blockquote>\n" +
				"  &lt;xmp> is disallowed.  &lt;XMP> is also disallowed.\n" +
				"&lt;/blockquote>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := marktree.Parse([]byte(input))
			r := &Renderer{FilterTag: test.filterTag}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			if diff := cmp.Diff(test.want, buf.String()); diff != "" {
				t.Errorf("output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterTagIgnoresRenderedElements(t *testing.T) {
	doc := marktree.Parse([]byte("> *a* <em>b</em>\n"))
	r := &Renderer{FilterTag: func(tag []byte) bool { return true }}
	buf := new(bytes.Buffer)
	if err := r.Render(buf, doc); err != nil {
		t.Error("Render:", err)
	}
	const want = "<blockquote>\n<p><em>a</em> &lt;em>b&lt;/em></p>\n</blockquote>\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestFilterRawSkipsComments(t *testing.T) {
	r := &renderState{Renderer: &Renderer{FilterTag: FilterTagGFM}}
	r.filterRaw("<!-- <script> --><script>")
	const want = "<!-- <script> -->&lt;script>"
	if got := string(r.dst); got != want {
		t.Errorf("filterRaw(...) = %q; want %q", got, want)
	}
}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{"", ""},
		{"/url", "/url"},
		{"/my uri", "/my%20uri"},
		{"foo%20bä", "foo%20b%C3%A4"},
		{"%zz", "%25zz"},
		{`a"b`, "a%22b"},
		{"http://example.com/?q=1&r=[2]", "http://example.com/?q=1&r=%5B2%5D"},
		{"100%", "100%25"},
		{"%4a%4A", "%4a%4A"},
		{"a\xffb", "a%EF%BF%BDb"},
		{"\U0001F600", "%F0%9F%98%80"},
	}
	for _, test := range tests {
		if got := NormalizeURI(test.s); got != test.want {
			t.Errorf("NormalizeURI(%q) = %q; want %q", test.s, got, test.want)
		}
	}
}

func TestAppender(t *testing.T) {
	p, err := marktree.NewParser(strikethrough.Extend(nil))
	if err != nil {
		t.Fatal(err)
	}
	doc := p.Parse([]byte("~~gone~~ *here*\n"))
	got := string(new(Renderer).AppendNode(nil, doc.Root()))
	const want = "<p><del>gone</del> <em>here</em></p>\n"
	if got != want {
		t.Errorf("output = %q; want %q", got, want)
	}
}

func TestAltText(t *testing.T) {
	doc := marktree.Parse([]byte("![a *b* `c`\nd](/x.png)\n"))
	var img marktree.Node
	marktree.Inspect(doc.Root(), func(n marktree.Node, entering bool) bool {
		if n.Kind() == marktree.ImageKind {
			img = n
		}
		return true
	})
	if img.IsZero() {
		t.Fatal("no image in document")
	}
	if got, want := altText(img), "a b c d"; got != want {
		t.Errorf("altText(...) = %q; want %q", got, want)
	}
}

func TestSoftBreakBehaviorString(t *testing.T) {
	tests := []struct {
		b    SoftBreakBehavior
		want string
	}{
		{SoftBreakPreserve, "SoftBreakPreserve"},
		{SoftBreakSpace, "SoftBreakSpace"},
		{SoftBreakHarden, "SoftBreakHarden"},
		{SoftBreakBehavior(42), "SoftBreakBehavior(42)"},
	}
	for _, test := range tests {
		if got := test.b.String(); got != test.want {
			t.Errorf("SoftBreakBehavior(%d).String() = %q; want %q", int(test.b), got, test.want)
		}
	}
}
