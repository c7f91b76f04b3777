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

// Package normhtml normalizes HTML so that rendered Markdown
// can be compared without regard to insignificant whitespace,
// attribute order, or character references.
// The rules follow the [CommonMark spec test normalization].
//
// [CommonMark spec test normalization]: https://github.com/commonmark/commonmark-spec/blob/0.31.2/test/normalize.py
package normhtml

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var textEscaper = bytereplacer.New(
	"&", "&amp;",
	`'`, "&apos;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// Normalize strips insignificant output differences from HTML.
func Normalize(b []byte) []byte {
	n := &normalizer{
		tok:  html.NewTokenizerFragment(bytes.NewReader(b), "div"),
		last: html.StartTagToken,
	}
	for n.next() {
	}
	return n.out
}

// String is like [Normalize] but operates on a string.
func String(s string) string {
	return string(Normalize([]byte(s)))
}

type normalizer struct {
	tok     *html.Tokenizer
	out     []byte
	last    html.TokenType
	lastTag atom.Atom
	inPre   bool
}

type attribute struct {
	key   string
	value string
}

// next processes a single token,
// returning false once the input is exhausted.
func (n *normalizer) next() bool {
	tt := n.tok.Next()
	switch tt {
	case html.ErrorToken:
		return false
	case html.TextToken:
		n.text(n.tok.Text())
	case html.EndTagToken:
		name, _ := n.tok.TagName()
		tag := atom.Lookup(name)
		if tag == atom.Pre {
			n.inPre = false
		} else if blockTags[tag] {
			n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
		}
		n.out = append(n.out, "</"...)
		n.out = append(n.out, name...)
		n.out = append(n.out, '>')
		n.lastTag = tag
	case html.StartTagToken, html.SelfClosingTagToken:
		n.startTag()
	case html.CommentToken:
		n.out = append(n.out, n.tok.Raw()...)
	}

	n.last = tt
	if tt == html.SelfClosingTagToken {
		n.last = html.EndTagToken
	}
	return true
}

func (n *normalizer) text(data []byte) {
	afterTag := n.last == html.EndTagToken || n.last == html.StartTagToken
	if afterTag && n.lastTag == atom.Br {
		data = bytes.TrimLeft(data, "\n")
	}
	if !n.inPre {
		data = whitespaceRE.ReplaceAll(data, []byte(" "))
		if afterTag && blockTags[n.lastTag] {
			if n.last == html.StartTagToken {
				data = bytes.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = bytes.TrimSpace(data)
			}
		}
	}
	n.out = append(n.out, textEscaper.Replace(bytes.Clone(data))...)
}

func (n *normalizer) startTag() {
	name, hasAttr := n.tok.TagName()
	tag := atom.Lookup(name)
	if tag == atom.Pre {
		n.inPre = true
	}
	if blockTags[tag] {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, '<')
	n.out = append(n.out, name...)
	var attrs []attribute
	for more := hasAttr; more; {
		var k, v []byte
		k, v, more = n.tok.TagAttr()
		attrs = append(attrs, attribute{string(k), string(v)})
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].key < attrs[j].key
	})
	for _, attr := range attrs {
		n.out = append(n.out, ' ')
		n.out = append(n.out, attr.key...)
		if attr.value != "" {
			n.out = append(n.out, `="`...)
			n.out = append(n.out, html.EscapeString(attr.value)...)
			n.out = append(n.out, '"')
		}
	}
	n.out = append(n.out, '>')
	n.lastTag = tag
}

var blockTags = makeAtomSet(
	"article header aside hgroup blockquote hr iframe body li map button " +
		"object canvas ol caption output col p colgroup pre dd progress div " +
		"section dl table td dt tbody embed textarea fieldset tfoot figcaption " +
		"th figure thead footer tr form ul h1 h2 h3 h4 h5 h6 video script style",
)

func makeAtomSet(names string) map[atom.Atom]bool {
	set := make(map[atom.Atom]bool)
	for _, name := range strings.Fields(names) {
		a := atom.Lookup([]byte(name))
		if a == 0 {
			panic("normhtml: unknown tag " + name)
		}
		set[a] = true
	}
	return set
}
