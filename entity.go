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
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// parseEntity parses an [entity or numeric character reference]
// at the beginning of s.
// It returns the decoded text and the number of bytes the reference occupies,
// or n == 0 if s does not begin with a valid reference.
//
// [entity or numeric character reference]: https://spec.commonmark.org/0.30/#entity-and-numeric-character-references
func parseEntity(s string) (text string, n int) {
	if len(s) < 3 || s[0] != '&' {
		return "", 0
	}
	if s[1] == '#' {
		return parseNumericEntity(s)
	}
	end := 1
	for end < len(s) && end <= 32 && (isASCIILetter(s[end]) || isASCIIDigit(s[end])) {
		end++
	}
	if end == 1 || !isASCIILetter(s[1]) || end >= len(s) || s[end] != ';' {
		return "", 0
	}
	n = end + 1
	ref := s[:n]
	decoded := html.UnescapeString(ref)
	// UnescapeString also accepts legacy references without a trailing semicolon,
	// which leaves the rest of the name (and the semicolon) in the output.
	if decoded == ref || strings.HasSuffix(decoded, ";") && ref != "&semi;" {
		return "", 0
	}
	return decoded, n
}

func parseNumericEntity(s string) (text string, n int) {
	i := 2
	base := 10
	maxDigits := 7
	if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
		i++
		base = 16
		maxDigits = 6
	}
	start := i
	for i < len(s) && i-start < maxDigits && (base == 10 && isASCIIDigit(s[i]) || base == 16 && isHexDigit(s[i])) {
		i++
	}
	if i == start || i >= len(s) || s[i] != ';' {
		return "", 0
	}
	x, err := strconv.ParseUint(s[start:i], base, 32)
	r := rune(x)
	if err != nil || r == 0 || !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return string(r), i + 1
}

// unescapeString processes backslash escapes and character references in s.
func unescapeString(s string) string {
	if strings.IndexByte(s, '\\') < 0 && strings.IndexByte(s, '&') < 0 {
		return s
	}
	sb := new(strings.Builder)
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && isASCIIPunctuation(s[i+1]):
			sb.WriteByte(s[i+1])
			i += 2
		case c == '&':
			if text, n := parseEntity(s[i:]); n > 0 {
				sb.WriteString(text)
				i += n
			} else {
				sb.WriteByte(c)
				i++
			}
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}
