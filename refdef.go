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

import "strings"

type refDefState int8

const (
	// refDefStart looks for the '[' that begins a definition.
	refDefStart refDefState = iota
	// refDefLabel scans the label, which may span lines.
	refDefLabel
	// refDefDestination expects the destination after "[label]:".
	refDefDestination
	// refDefStartTitle looks for the optional title.
	refDefStartTitle
	// refDefTitle scans the title, which may span lines.
	refDefTitle
	// refDefParagraph is the terminal state:
	// no further definitions can occur in the paragraph.
	refDefParagraph
)

// refDef is a link reference definition found at the start of a paragraph.
type refDef struct {
	label string
	LinkDefinition
	spans []SourceSpan
}

// A refDefParser recognizes [link reference definitions]
// at the beginning of a paragraph.
// It is fed the paragraph's lines as they are added to the block
// and separates the lines that remain paragraph content.
//
// [link reference definitions]: https://spec.commonmark.org/0.30/#link-reference-definitions
type refDefParser struct {
	state     refDefState
	paragraph []contentLine
	defs      []refDef

	label       strings.Builder
	destination string
	titleCloser byte
	title       strings.Builder
	hasTitle    bool

	// valid is set once the definition in progress
	// can be committed without a title.
	valid      bool
	spans      []SourceSpan
	validSpans int
}

func (p *refDefParser) parse(line contentLine) {
	p.paragraph = append(p.paragraph, line)
	if p.state == refDefParagraph {
		return
	}
	p.spans = append(p.spans, line.span)

	s := line.text
	for i := 0; i < len(s); {
		var ok bool
		switch p.state {
		case refDefStart:
			i, ok = p.startDefinition(s, i)
		case refDefLabel:
			i, ok = p.parseLabel(s, i)
		case refDefDestination:
			i, ok = p.parseDestination(s, i)
		case refDefStartTitle:
			i, ok = p.startTitle(s, i)
		case refDefTitle:
			i, ok = p.parseTitle(s, i)
		default:
			panic("unreachable")
		}
		if !ok {
			p.state = refDefParagraph
			return
		}
	}
	switch p.state {
	case refDefLabel:
		p.label.WriteByte('\n')
	case refDefTitle:
		p.title.WriteByte('\n')
	}
}

func (p *refDefParser) startDefinition(s string, i int) (int, bool) {
	i = skipSpaceTab(s, i)
	if i >= len(s) || s[i] != '[' {
		return i, false
	}
	p.state = refDefLabel
	p.label.Reset()
	return i + 1, true
}

func (p *refDefParser) parseLabel(s string, i int) (int, bool) {
	j := scanLinkLabelContent(s, i)
	p.label.WriteString(s[i:j])
	if p.label.Len() > maxLabelLength {
		return j, false
	}
	if j >= len(s) {
		// The label may continue on the next line.
		return j, true
	}
	if s[j] != ']' || j+1 >= len(s) || s[j+1] != ':' {
		return j, false
	}
	if NormalizeLabel(p.label.String()) == "" {
		return j, false
	}
	p.state = refDefDestination
	return skipSpaceTab(s, j+2), true
}

func (p *refDefParser) parseDestination(s string, i int) (int, bool) {
	i = skipSpaceTab(s, i)
	if i >= len(s) {
		return i, true
	}
	dest, end, ok := parseLinkDestination(s, i)
	if !ok || end == i {
		return end, false
	}
	p.destination = dest
	p.hasTitle = false
	p.title.Reset()

	next := skipSpaceTab(s, end)
	if next >= len(s) {
		// Destination at end of line: the definition is valid
		// whether or not a title follows.
		p.valid = true
		p.validSpans = len(p.spans)
		p.paragraph = p.paragraph[:0]
	} else if next == end {
		// The title must be separated from the destination by whitespace.
		return end, false
	}
	p.state = refDefStartTitle
	return next, true
}

func (p *refDefParser) startTitle(s string, i int) (int, bool) {
	i = skipSpaceTab(s, i)
	if i >= len(s) {
		return i, true
	}
	p.titleCloser = titleCloser(s[i])
	if p.titleCloser == 0 {
		p.finish(false)
		// Another definition may begin here.
		p.state = refDefStart
		return i, true
	}
	p.state = refDefTitle
	p.title.Reset()
	return i + 1, true
}

func (p *refDefParser) parseTitle(s string, i int) (int, bool) {
	j, ok := scanLinkTitleContent(s, i, p.titleCloser)
	if !ok {
		return j, false
	}
	p.title.WriteString(s[i:j])
	if j >= len(s) {
		// The title may continue on the next line.
		return j, true
	}
	end := skipSpaceTab(s, j+1)
	if end < len(s) {
		// No further characters may occur on the line.
		p.title.Reset()
		return end, false
	}
	p.hasTitle = true
	p.valid = true
	p.finish(true)
	p.paragraph = p.paragraph[:0]
	p.state = refDefStart
	return end, true
}

// finish commits the definition in progress if it is valid.
// lineIncluded reports whether the current line belongs to the definition.
func (p *refDefParser) finish(lineIncluded bool) {
	if !p.valid {
		return
	}
	n := len(p.spans)
	if !lineIncluded || !p.hasTitle {
		n = p.validSpans
	}
	def := refDef{
		label: p.label.String(),
		LinkDefinition: LinkDefinition{
			Destination: p.destination,
		},
		spans: append([]SourceSpan(nil), p.spans[:n]...),
	}
	if p.hasTitle {
		def.Title = unescapeString(p.title.String())
		def.TitlePresent = true
	}
	p.defs = append(p.defs, def)
	p.spans = append(p.spans[:0], p.spans[n:]...)
	p.valid = false
	p.hasTitle = false
	p.destination = ""
}

// definitions commits any pending definition
// and returns all the definitions found.
func (p *refDefParser) definitions() []refDef {
	p.finish(false)
	return p.defs
}
