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

// Package strikethrough provides a [marktree] extension
// for GitHub Flavored Markdown strikethrough: ~~text~~.
package strikethrough

import "zombiezen.com/go/marktree"

// Strikethrough is the [marktree.Node.Data] value
// of a [marktree.CustomInlineKind] node holding struck-through text.
type Strikethrough struct{}

// AppendHTML wraps the node's content in a <del> element.
func (Strikethrough) AppendHTML(dst []byte, entering bool) []byte {
	if entering {
		return append(dst, "<del>"...)
	}
	return append(dst, "</del>"...)
}

// AppendMarkdown wraps the node's content in tildes.
func (Strikethrough) AppendMarkdown(dst []byte, entering bool) []byte {
	return append(dst, "~~"...)
}

// Is reports whether n is a strikethrough node.
func Is(n marktree.Node) bool {
	_, ok := n.Data().(Strikethrough)
	return n.Kind() == marktree.CustomInlineKind && ok
}

// Processor is the [marktree.DelimiterProcessor] for '~'.
// Runs must be at least two tildes long
// and two tildes are used from each side.
type Processor struct{}

// Extend adds strikethrough to opts and returns it.
// If opts is nil, Extend allocates a new [marktree.Options].
func Extend(opts *marktree.Options) *marktree.Options {
	if opts == nil {
		opts = new(marktree.Options)
	}
	opts.DelimiterProcessors = append(opts.DelimiterProcessors, Processor{})
	return opts
}

func (Processor) Char() byte     { return '~' }
func (Processor) MinLength() int { return 2 }

func (Processor) Process(opener, closer marktree.DelimiterRun) int {
	return min(2, opener.Len, closer.Len)
}

func (Processor) Wrap(doc *marktree.Document, n int) marktree.Node {
	node := doc.NewNode(marktree.CustomInlineKind)
	node.SetData(Strikethrough{})
	return node
}
