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

package strikethrough

import (
	"bytes"
	"testing"

	"zombiezen.com/go/marktree"
	"zombiezen.com/go/marktree/htmlrender"
)

func TestStrikethrough(t *testing.T) {
	p, err := marktree.NewParser(Extend(nil))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		markdown string
		want     string
	}{
		{"~~Hi~~ Hello, world!", "<p><del>Hi</del> Hello, world!</p>\n"},
		{"~Hi~ Hello", "<p>~Hi~ Hello</p>\n"},
		{"This ~~has a\n\nnew paragraph~~.", "<p>This ~~has a</p>\n<p>new paragraph~~.</p>\n"},
		{"~~*a* b~~", "<p><del><em>a</em> b</del></p>\n"},
		{"*~~a~~*", "<p><em><del>a</del></em></p>\n"},
		{"`~~a~~`", "<p><code>~~a~~</code></p>\n"},
		{"\\~~a~~", "<p>~~a~~</p>\n"},
	}
	for _, test := range tests {
		doc := p.Parse([]byte(test.markdown))
		got := new(bytes.Buffer)
		if err := htmlrender.Render(got, doc); err != nil {
			t.Errorf("htmlrender.Render(p.Parse(%q)): %v", test.markdown, err)
			continue
		}
		if got.String() != test.want {
			t.Errorf("htmlrender.Render(p.Parse(%q)) = %q; want %q", test.markdown, got, test.want)
		}
	}
}

func TestIs(t *testing.T) {
	p, err := marktree.NewParser(Extend(nil))
	if err != nil {
		t.Fatal(err)
	}
	doc := p.Parse([]byte("a ~~b~~"))
	para := doc.Root().FirstChild()
	var found []marktree.Node
	for n := para.FirstChild(); !n.IsZero(); n = n.Next() {
		if Is(n) {
			found = append(found, n)
		}
	}
	if len(found) != 1 {
		t.Fatalf("found %d strikethrough nodes; want 1", len(found))
	}
	if got := found[0].FirstChild().Literal(); got != "b" {
		t.Errorf("strikethrough content = %q; want %q", got, "b")
	}
}

func TestExtendDuplicate(t *testing.T) {
	opts := Extend(Extend(nil))
	if _, err := marktree.NewParser(opts); err == nil {
		t.Error("NewParser with two strikethrough processors did not return an error")
	}
}
