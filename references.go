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

	"golang.org/x/text/cases"
)

// maxLabelLength is the maximum number of characters
// permitted between the brackets of a [link label].
//
// [link label]: https://spec.commonmark.org/0.30/#link-label
const maxLabelLength = 999

// A ReferenceLookup resolves link reference definitions by label.
// It is consulted by the inline parser after the document's own definitions,
// which allows definitions gathered elsewhere to be used in a document.
type ReferenceLookup interface {
	LookupReference(normalizedLabel string) (LinkDefinition, bool)
}

// LinkDefinition is the data of a [link reference definition].
//
// [link reference definition]: https://spec.commonmark.org/0.30/#link-reference-definition
type LinkDefinition struct {
	Destination  string
	Title        string
	TitlePresent bool
}

// ReferenceMap is a mapping of [normalized labels] to link definitions.
//
// [normalized labels]: https://spec.commonmark.org/0.30/#matches
type ReferenceMap map[string]LinkDefinition

// LookupReference returns the definition for the normalized label, if present.
func (m ReferenceMap) LookupReference(normalizedLabel string) (LinkDefinition, bool) {
	def, ok := m[normalizedLabel]
	return def, ok
}

// add records a definition unless the label is already defined.
func (m ReferenceMap) add(normalizedLabel string, def LinkDefinition) {
	if _, exists := m[normalizedLabel]; !exists {
		m[normalizedLabel] = def
	}
}

// NormalizeLabel returns the form of a link label used for matching:
// surrounding whitespace is removed,
// internal whitespace runs are collapsed to a single space,
// and the result is Unicode case folded.
func NormalizeLabel(label string) string {
	sb := new(strings.Builder)
	sb.Grow(len(label))
	space := false
	for i := 0; i < len(label); i++ {
		if isSpaceTabOrLineEnding(label[i]) {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteByte(label[i])
	}
	return cases.Fold().String(sb.String())
}

// parseLinkDestination parses a [link destination] starting at s[i].
// It returns the unescaped destination and the index just past it.
// A bare destination may be empty;
// callers that do not permit that must check end > i.
//
// [link destination]: https://spec.commonmark.org/0.30/#link-destination
func parseLinkDestination(s string, i int) (dest string, end int, ok bool) {
	if i < len(s) && s[i] == '<' {
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '>':
				return unescapeString(s[i+1 : j]), j + 1, true
			case '\n', '<':
				return "", i, false
			case '\\':
				if j+1 < len(s) && isASCIIPunctuation(s[j+1]) {
					j++
				}
			}
		}
		return "", i, false
	}

	depth := 0
	j := i
scan:
	for j < len(s) {
		switch c := s[j]; {
		case c == '\\' && j+1 < len(s) && isASCIIPunctuation(s[j+1]):
			j += 2
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				break scan
			}
			depth--
		case c <= ' ' || c == 0x7f:
			break scan
		}
		j++
	}
	if depth != 0 {
		return "", i, false
	}
	return unescapeString(s[i:j]), j, true
}

// parseLinkTitle parses a [link title] starting at s[i].
// It returns the unescaped title and the index just past it.
//
// [link title]: https://spec.commonmark.org/0.30/#link-title
func parseLinkTitle(s string, i int) (title string, end int, ok bool) {
	if i >= len(s) {
		return "", i, false
	}
	j, ok := scanLinkTitleContent(s, i+1, titleCloser(s[i]))
	if !ok || j >= len(s) {
		return "", i, false
	}
	return unescapeString(s[i+1 : j]), j + 1, true
}

// titleCloser returns the character that ends a title
// begun with the given character, or zero if c does not begin a title.
func titleCloser(c byte) byte {
	switch c {
	case '"', '\'':
		return c
	case '(':
		return ')'
	default:
		return 0
	}
}

// scanLinkTitleContent scans title text starting at s[i]
// until it finds the unescaped closing character.
// It returns the index of the closing character,
// or len(s) if the title continues past the end of s.
// ok is false if the title is invalid.
func scanLinkTitleContent(s string, i int, closer byte) (end int, ok bool) {
	if closer == 0 {
		return i, false
	}
	for ; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && isASCIIPunctuation(s[i+1]):
			i++
		case c == closer:
			return i, true
		case closer == ')' && c == '(':
			return i, false
		}
	}
	return len(s), true
}

// scanLinkLabelContent scans label text starting at s[i].
// It returns the index of the first unescaped bracket,
// or len(s) if there is none.
func scanLinkLabelContent(s string, i int) int {
	for ; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && isASCIIPunctuation(s[i+1]) {
				i++
			}
		case '[', ']':
			return i
		}
	}
	return len(s)
}

// parseLinkLabel parses a [link label] starting at s[i].
// It returns the text between the brackets and the index just past the label.
//
// [link label]: https://spec.commonmark.org/0.30/#link-label
func parseLinkLabel(s string, i int) (label string, end int, ok bool) {
	if i >= len(s) || s[i] != '[' {
		return "", i, false
	}
	j := scanLinkLabelContent(s, i+1)
	if j >= len(s) || s[j] != ']' || j-(i+1) > maxLabelLength {
		return "", i, false
	}
	return s[i+1 : j], j + 1, true
}

// skipLinkWhitespace returns the index of the first byte at or after i
// that is not whitespace, allowing at most one line ending.
func skipLinkWhitespace(s string, i int) int {
	sawNewline := false
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t':
		case '\n':
			if sawNewline {
				return i
			}
			sawNewline = true
		default:
			return i
		}
	}
	return i
}
