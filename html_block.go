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

	"golang.org/x/net/html/atom"
)

// htmlBlockType returns the kind of [HTML block] (1 through 7)
// that line, stripped of indentation, opens
// or zero if line does not open one.
// Type 7 blocks cannot interrupt a paragraph,
// so they are only recognized if canBeType7 is true.
//
// [HTML block]: https://spec.commonmark.org/0.30/#html-blocks
func htmlBlockType(line string, canBeType7 bool) int {
	switch {
	case strings.HasPrefix(line, "<!--"):
		return 2
	case strings.HasPrefix(line, "<?"):
		return 3
	case strings.HasPrefix(line, "<![CDATA["):
		return 5
	case strings.HasPrefix(line, "<!"):
		if len(line) > 2 && isASCIILetter(line[2]) {
			return 4
		}
		return 0
	}

	for _, name := range htmlRawTextElements {
		if hasCaseInsensitivePrefix(line[1:], name) && isHTMLTagNameEnd(line[1+len(name):], false) {
			return 1
		}
	}

	i := 1
	if strings.HasPrefix(line, "</") {
		i = 2
	}
	j := i
	for j < len(line) && (isASCIILetter(line[j]) || isASCIIDigit(line[j])) {
		j++
	}
	if j == i {
		return 0
	}
	name := make([]byte, j-i)
	for k := range name {
		name[k] = toLowerASCII(line[i+k])
	}
	a := atom.Lookup(name)
	if htmlBlockElements[a] && isHTMLTagNameEnd(line[j:], true) {
		return 6
	}
	if !canBeType7 || isHTMLRawTextElement(a) && (j == len(line) || line[j] != '-') {
		return 0
	}
	var end int
	if i == 2 {
		end = scanHTMLClosingTag(line, 2)
	} else {
		end = scanHTMLOpenTag(line, 1)
	}
	if end < 0 || !isBlank(line[end:]) {
		return 0
	}
	return 7
}

// htmlBlockEnds reports whether a line of an HTML block of the given type
// contains the block's end condition.
// Blocks of types 6 and 7 end at a blank line instead.
func htmlBlockEnds(typ int, line string) bool {
	switch typ {
	case 1:
		for i := strings.Index(line, "</"); i >= 0; {
			rest := line[i+2:]
			for _, name := range htmlRawTextElements {
				if hasCaseInsensitivePrefix(rest, name) && strings.HasPrefix(rest[len(name):], ">") {
					return true
				}
			}
			j := strings.Index(rest, "</")
			if j < 0 {
				break
			}
			i += 2 + j
		}
		return false
	case 2:
		return strings.Contains(line, "-->")
	case 3:
		return strings.Contains(line, "?>")
	case 4:
		return strings.Contains(line, ">")
	case 5:
		return strings.Contains(line, "]]>")
	default:
		return false
	}
}

// isHTMLTagNameEnd reports whether rest can follow a tag name
// at the start of an HTML block.
func isHTMLTagNameEnd(rest string, allowSelfClose bool) bool {
	return rest == "" ||
		isSpaceTabOrLineEnding(rest[0]) ||
		rest[0] == '>' ||
		allowSelfClose && strings.HasPrefix(rest, "/>")
}

// htmlRawTextElements are elements whose contents are not Markdown.
var htmlRawTextElements = []string{
	atom.Pre.String(),
	atom.Script.String(),
	atom.Style.String(),
	atom.Textarea.String(),
}

func isHTMLRawTextElement(a atom.Atom) bool {
	return a == atom.Pre || a == atom.Script || a == atom.Style || a == atom.Textarea
}

// htmlBlockElements is the set of block-level element names
// that start an HTML block.
var htmlBlockElements = map[atom.Atom]bool{
	atom.Address:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Base:       true,
	atom.Basefont:   true,
	atom.Blockquote: true,
	atom.Body:       true,
	atom.Caption:    true,
	atom.Center:     true,
	atom.Col:        true,
	atom.Colgroup:   true,
	atom.Dd:         true,
	atom.Details:    true,
	atom.Dialog:     true,
	atom.Dir:        true,
	atom.Div:        true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Fieldset:   true,
	atom.Figcaption: true,
	atom.Figure:     true,
	atom.Footer:     true,
	atom.Form:       true,
	atom.Frame:      true,
	atom.Frameset:   true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Head:       true,
	atom.Header:     true,
	atom.Hr:         true,
	atom.Html:       true,
	atom.Iframe:     true,
	atom.Legend:     true,
	atom.Li:         true,
	atom.Link:       true,
	atom.Main:       true,
	atom.Menu:       true,
	atom.Menuitem:   true,
	atom.Nav:        true,
	atom.Noframes:   true,
	atom.Ol:         true,
	atom.Optgroup:   true,
	atom.Option:     true,
	atom.P:          true,
	atom.Param:      true,
	atom.Section:    true,
	atom.Source:     true,
	atom.Summary:    true,
	atom.Table:      true,
	atom.Tbody:      true,
	atom.Td:         true,
	atom.Tfoot:      true,
	atom.Th:         true,
	atom.Thead:      true,
	atom.Title:      true,
	atom.Tr:         true,
	atom.Track:      true,
	atom.Ul:         true,
}

// scanHTMLTag scans [raw HTML] starting at s[i], which must be '<'.
// It returns the index just past the construct or -1 if there is none.
//
// [raw HTML]: https://spec.commonmark.org/0.30/#raw-html
func scanHTMLTag(s string, i int) (end int) {
	const (
		cdataPrefix = "<![CDATA["
		cdataSuffix = "]]>"
	)

	rest := s[i:]
	switch {
	case strings.HasPrefix(rest, "<?"):
		// Processing instruction.
		if j := strings.Index(rest[2:], "?>"); j >= 0 {
			return i + 2 + j + 2
		}
		return -1
	case strings.HasPrefix(rest, "<!--"):
		text := rest[4:]
		if strings.HasPrefix(text, ">") || strings.HasPrefix(text, "->") {
			return -1
		}
		j := strings.Index(text, "--")
		if j < 0 || !strings.HasPrefix(text[j:], "-->") {
			// Comments may not contain "--".
			return -1
		}
		return i + 4 + j + 3
	case strings.HasPrefix(rest, cdataPrefix):
		if j := strings.Index(rest[len(cdataPrefix):], cdataSuffix); j >= 0 {
			return i + len(cdataPrefix) + j + len(cdataSuffix)
		}
		return -1
	case strings.HasPrefix(rest, "<!"):
		// Declaration.
		if len(rest) < 3 || !isASCIILetter(rest[2]) {
			return -1
		}
		if j := strings.IndexByte(rest, '>'); j >= 0 {
			return i + j + 1
		}
		return -1
	case strings.HasPrefix(rest, "</"):
		return scanHTMLClosingTag(s, i+2)
	default:
		return scanHTMLOpenTag(s, i+1)
	}
}

// scanHTMLOpenTag scans an [open tag] sans the leading '<'.
//
// [open tag]: https://spec.commonmark.org/0.30/#open-tag
func scanHTMLOpenTag(s string, i int) (end int) {
	i = scanHTMLTagName(s, i)
	if i < 0 {
		return -1
	}
	for {
		beforeSpace := i
		i = skipHTMLSpace(s, i)
		if i >= len(s) {
			return -1
		}
		switch s[i] {
		case '/':
			if i+1 < len(s) && s[i+1] == '>' {
				return i + 2
			}
			return -1
		case '>':
			return i + 1
		}
		if i == beforeSpace {
			// Attributes must be preceded by whitespace.
			return -1
		}
		i = scanHTMLAttribute(s, i)
		if i < 0 {
			return -1
		}
	}
}

// scanHTMLClosingTag scans a [closing tag] sans the leading "</".
//
// [closing tag]: https://spec.commonmark.org/0.30/#closing-tag
func scanHTMLClosingTag(s string, i int) (end int) {
	i = scanHTMLTagName(s, i)
	if i < 0 {
		return -1
	}
	i = skipHTMLSpace(s, i)
	if i >= len(s) || s[i] != '>' {
		return -1
	}
	return i + 1
}

func scanHTMLTagName(s string, i int) int {
	if i >= len(s) || !isASCIILetter(s[i]) {
		return -1
	}
	for i++; i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || s[i] == '-'); i++ {
	}
	return i
}

func scanHTMLAttribute(s string, i int) int {
	// Attribute name.
	if c := s[i]; !isASCIILetter(c) && c != '_' && c != ':' {
		return -1
	}
	for i++; i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || strings.IndexByte("_.:-", s[i]) >= 0); i++ {
	}

	// Attribute value specification.
	// Don't consume space unless it is followed by an equal sign,
	// since it will cause future attributes to fail.
	j := skipHTMLSpace(s, i)
	if j >= len(s) || s[j] != '=' {
		return i
	}
	j = skipHTMLSpace(s, j+1)
	if j >= len(s) {
		// Must have an attribute value following equals sign.
		return -1
	}
	switch c := s[j]; {
	case c == '\'' || c == '"':
		k := strings.IndexByte(s[j+1:], c)
		if k < 0 {
			return -1
		}
		return j + 1 + k + 1
	case isUnquotedAttributeValueChar(c):
		for j < len(s) && isUnquotedAttributeValueChar(s[j]) {
			j++
		}
		return j
	default:
		return -1
	}
}

func skipHTMLSpace(s string, i int) int {
	for i < len(s) && isSpaceTabOrLineEnding(s[i]) {
		i++
	}
	return i
}

func isUnquotedAttributeValueChar(c byte) bool {
	return !isSpaceTabOrLineEnding(c) && strings.IndexByte("\"'=<>`", c) < 0
}
