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

package frontmatter

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/marktree"
	"zombiezen.com/go/marktree/htmlrender"
)

func TestFrontMatter(t *testing.T) {
	p, err := marktree.NewParser(Extend(nil))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		markdown string
		want     *Metadata
		wantHTML string
	}{
		{
			name:     "Mapping",
			markdown: "---\ntitle: Hello\ntags:\n  - a\n  - b\n---\n# Heading\n",
			want: &Metadata{
				Raw: "title: Hello\ntags:\n  - a\n  - b\n",
				Values: map[string]any{
					"title": "Hello",
					"tags":  []any{"a", "b"},
				},
			},
			wantHTML: "<h1>Heading</h1>\n",
		},
		{
			name:     "DotsClose",
			markdown: "---\nn: 1\n...\nText\n",
			want: &Metadata{
				Raw:    "n: 1\n",
				Values: map[string]any{"n": 1},
			},
			wantHTML: "<p>Text</p>\n",
		},
		{
			name:     "Empty",
			markdown: "---\n---\nText\n",
			want:     &Metadata{},
			wantHTML: "<p>Text</p>\n",
		},
		{
			name:     "BlankLines",
			markdown: "---\na: x\n\nb: y\n---\n",
			want: &Metadata{
				Raw:    "a: x\n\nb: y\n",
				Values: map[string]any{"a": "x", "b": "y"},
			},
			wantHTML: "",
		},
		{
			name:     "NotAtStart",
			markdown: "Text\n\n---\na: b\n---\n",
			want:     nil,
			wantHTML: "<p>Text</p>\n<hr />\n<h2>a: b</h2>\n",
		},
		{
			name:     "Indented",
			markdown: " ---\na: b\n---\n",
			want:     nil,
			wantHTML: "<hr />\n<h2>a: b</h2>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := p.Parse([]byte(test.markdown))
			got := Get(doc)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("metadata (-want +got):\n%s", diff)
			}
			html := new(bytes.Buffer)
			if err := htmlrender.Render(html, doc); err != nil {
				t.Fatal(err)
			}
			if html.String() != test.wantHTML {
				t.Errorf("html = %q; want %q", html, test.wantHTML)
			}
		})
	}
}

func TestFrontMatterDecodeError(t *testing.T) {
	p, err := marktree.NewParser(Extend(nil))
	if err != nil {
		t.Fatal(err)
	}
	doc := p.Parse([]byte("---\n: [\n---\n"))
	m := Get(doc)
	if m == nil {
		t.Fatal("Get(doc) = nil")
	}
	if m.Err == nil {
		t.Errorf("Get(doc).Err = <nil>; want decode error")
	}
	if m.Values != nil {
		t.Errorf("Get(doc).Values = %v; want nil", m.Values)
	}
}

func TestDefaultParserIgnoresFrontMatter(t *testing.T) {
	doc := marktree.Parse([]byte("---\ntitle: x\n---\n"))
	if m := Get(doc); m != nil {
		t.Errorf("Get(marktree.Parse(...)) = %+v; want nil", m)
	}
	if got := doc.Root().FirstChild().Kind(); got != marktree.ThematicBreakKind {
		t.Errorf("first block = %v; want %v", got, marktree.ThematicBreakKind)
	}
}
