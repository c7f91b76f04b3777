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

// Package frontmatter provides a [marktree] extension
// for YAML metadata at the very start of a document:
//
//	---
//	title: Hello, World!
//	tags: [greeting]
//	---
//
// The closing delimiter may also be written as "...".
// Front matter without a closing delimiter extends to the end of the document.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"zombiezen.com/go/marktree"
)

// Metadata is the [marktree.Node.Data] value
// of a [marktree.CustomBlockKind] node holding front matter.
type Metadata struct {
	// Raw is the text between the delimiters.
	// Every line ends with a newline.
	Raw string
	// Values is the decoded YAML mapping.
	// It is nil if Raw is empty or could not be decoded.
	Values map[string]any
	// Err is the error encountered decoding Raw, if any.
	Err error
}

// AppendHTML returns dst unchanged: front matter is not rendered.
func (m *Metadata) AppendHTML(dst []byte, entering bool) []byte {
	return dst
}

// AppendMarkdown appends the front matter with its delimiters.
func (m *Metadata) AppendMarkdown(dst []byte, entering bool) []byte {
	if !entering {
		return dst
	}
	dst = append(dst, "---\n"...)
	dst = append(dst, m.Raw...)
	return append(dst, "---"...)
}

// Get returns the front matter of a document
// or nil if the document does not start with front matter.
func Get(doc *marktree.Document) *Metadata {
	first := doc.Root().FirstChild()
	if first.Kind() != marktree.CustomBlockKind {
		return nil
	}
	m, _ := first.Data().(*Metadata)
	return m
}

// Extend adds front matter recognition to opts and returns it.
// If opts is nil, Extend allocates a new [marktree.Options].
// The starter is registered with priority
// so that the opening "---" is not read as a thematic break.
func Extend(opts *marktree.Options) *marktree.Options {
	if opts == nil {
		opts = new(marktree.Options)
	}
	opts.PriorityBlockStarters = append(opts.PriorityBlockStarters, Starter{})
	return opts
}

// Starter is the [marktree.BlockStarter] for front matter.
type Starter struct{}

// TryStart starts a front matter block
// if the first line of the document is "---".
func (Starter) TryStart(state *marktree.LineState) *marktree.BlockStart {
	if state.LineNumber != 0 ||
		state.Matched.Kind() != marktree.DocumentKind ||
		!state.Document.Root().FirstChild().IsZero() ||
		trimLine(state.Line) != "---" {
		return nil
	}
	return &marktree.BlockStart{
		Parsers: []marktree.BlockParser{newParser(state.Document)},
		Index:   len(state.Line),
	}
}

type parser struct {
	node marktree.Node
	// opened is set once the remainder of the opening line has been discarded.
	opened bool
	raw    strings.Builder
}

func newParser(doc *marktree.Document) *parser {
	return &parser{node: doc.NewNode(marktree.CustomBlockKind)}
}

func (p *parser) Node() marktree.Node                 { return p.node }
func (p *parser) IsContainer() bool                   { return false }
func (p *parser) CanContain(child marktree.Kind) bool { return false }
func (p *parser) AcceptsLines() bool                  { return true }

func (p *parser) TryContinue(state *marktree.LineState) marktree.Continue {
	if line := trimLine(state.Line); line == "---" || line == "..." {
		return marktree.Continue{
			Matched:  true,
			Finished: true,
			Index:    len(state.Line),
		}
	}
	return marktree.Continue{Matched: true, Index: state.Index}
}

func (p *parser) AddLine(line string) {
	if !p.opened {
		p.opened = true
		return
	}
	p.raw.WriteString(line)
	p.raw.WriteString("\n")
}

func (p *parser) Finalize() {
	m := &Metadata{Raw: p.raw.String()}
	if strings.TrimSpace(m.Raw) != "" {
		if err := yaml.Unmarshal([]byte(m.Raw), &m.Values); err != nil {
			m.Values = nil
			m.Err = fmt.Errorf("front matter: %w", err)
		}
	}
	p.node.SetData(m)
}

func trimLine(line string) string {
	return strings.TrimRight(line, " \t")
}
