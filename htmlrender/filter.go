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
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
)

const (
	htmlCommentPrefix = "<!--"
	htmlCommentSuffix = "-->"
	piPrefix          = "<?"
	piSuffix          = "?>"
	cdataPrefix       = "<![CDATA["
	cdataSuffix       = "]]>"
)

// filterRaw performs the tag filtering
// described in https://github.github.com/gfm/#disallowed-raw-html-extension-.
//
// It cannot use a conventional HTML parser,
// since raw HTML in Markdown may be incomplete or start in the middle of a tag.
func (r *renderState) filterRaw(rawHTML string) {
	copyStart := 0
	for i := 0; i < len(rawHTML); {
		rest := rawHTML[i:]
		if rest[0] != '<' {
			i++
			continue
		}
		var skipTo string
		switch {
		case strings.HasPrefix(rest, cdataPrefix):
			skipTo = cdataSuffix
		case strings.HasPrefix(rest, htmlCommentPrefix):
			skipTo = htmlCommentSuffix
		case strings.HasPrefix(rest, piPrefix):
			skipTo = piSuffix
		case len(rest) > 2 && rest[1] == '!' && isASCIILetter(rest[2]):
			skipTo = ">"
		}
		if skipTo != "" {
			// Comments and the like cannot contain tags.
			if j := strings.Index(rest[2:], skipTo); j >= 0 {
				i += 2 + j + len(skipTo)
			} else {
				i = len(rawHTML)
			}
			continue
		}

		tagNameStart := i + 1
		if tagNameStart < len(rawHTML) && rawHTML[tagNameStart] == '/' {
			tagNameStart++
		}
		tagNameEnd := tagNameStart
		for tagNameEnd < len(rawHTML) && (isASCIILetter(rawHTML[tagNameEnd]) || '0' <= rawHTML[tagNameEnd] && rawHTML[tagNameEnd] <= '9' || rawHTML[tagNameEnd] == '-') {
			tagNameEnd++
		}
		if tagNameEnd > tagNameStart && r.FilterTag(r.lower(rawHTML[tagNameStart:tagNameEnd])) {
			r.dst = append(r.dst, rawHTML[copyStart:i]...)
			r.dst = append(r.dst, "&lt;"...)
			copyStart = i + 1
		}
		i = tagNameEnd
	}
	r.dst = append(r.dst, rawHTML[copyStart:]...)
}

// lower returns the lowercased bytes of s in a reused buffer.
func (r *renderState) lower(s string) []byte {
	r.lowerBuf = r.lowerBuf[:0]
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		r.lowerBuf = append(r.lowerBuf, c)
	}
	return r.lowerBuf
}

func isASCIILetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// FilterTagGFM reports whether tag is one of the elements
// that GitHub Flavored Markdown's [tagfilter extension] disallows
// in raw HTML and HTML blocks.
// Assigning it to [Renderer.FilterTag] makes the renderer
// escape the leading '<' of those tags.
//
// [tagfilter extension]: https://github.github.com/gfm/#disallowed-raw-html-extension-
func FilterTagGFM(tag []byte) bool {
	return gfmDisallowedTags[atom.Lookup(tag)]
}

var gfmDisallowedTags = map[atom.Atom]bool{
	atom.Iframe:    true,
	atom.Noembed:   true,
	atom.Noframes:  true,
	atom.Plaintext: true,
	atom.Script:    true,
	atom.Style:     true,
	atom.Textarea:  true,
	atom.Title:     true,
	atom.Xmp:       true,
}

// NormalizeURI returns the form of a link or image destination
// that the renderer writes into href and src attributes.
// Bytes outside the RFC 3986 reserved and unreserved sets
// are percent-encoded as UTF-8,
// existing percent escapes are kept,
// and a '%' that does not start an escape becomes "%25".
// [Appender] implementations that emit their own links should use it too.
func NormalizeURI(s string) string {
	sb := new(strings.Builder)
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				sb.WriteString(s[i : i+3])
				i += 3
			} else {
				sb.WriteString("%25")
				i++
			}
		case c < utf8.RuneSelf:
			if isURISafe(c) {
				sb.WriteByte(c)
			} else {
				writePercentEncoded(sb, s[i:i+1])
			}
			i++
		default:
			r, n := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && n == 1 {
				writePercentEncoded(sb, string(utf8.RuneError))
			} else {
				writePercentEncoded(sb, s[i:i+n])
			}
			i += n
		}
	}
	return sb.String()
}

// isURISafe reports whether an ASCII byte
// may appear in a URI without escaping.
func isURISafe(c byte) bool {
	return isASCIILetter(c) || '0' <= c && c <= '9' ||
		strings.IndexByte(`;/?:@&=+$,-_.!~*'()#`, c) >= 0
}

func writePercentEncoded(sb *strings.Builder, s string) {
	const hexDigits = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		sb.WriteByte('%')
		sb.WriteByte(hexDigits[s[i]>>4])
		sb.WriteByte(hexDigits[s[i]&0x0f])
	}
}

func isHex(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || '0' <= c && c <= '9'
}
