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

// emphasisProcessor is the [DelimiterProcessor]
// for '*' and '_' emphasis.
type emphasisProcessor struct {
	char byte
}

func (ep emphasisProcessor) Char() byte     { return ep.char }
func (ep emphasisProcessor) MinLength() int { return 1 }

// Process uses two characters for strong emphasis
// when both runs have at least two left and one otherwise.
func (ep emphasisProcessor) Process(opener, closer DelimiterRun) int {
	if opener.Len >= 2 && closer.Len >= 2 {
		return 2
	}
	return 1
}

// canPair reports whether the runs may close each other.
// If either run can both open and close,
// the sum of the original lengths must not be a multiple of 3
// unless both lengths are.
func (ep emphasisProcessor) canPair(opener, closer DelimiterRun) bool {
	return !((opener.CanClose || closer.CanOpen) &&
		closer.OriginalLen%3 != 0 &&
		(opener.OriginalLen+closer.OriginalLen)%3 == 0)
}

// Wrap returns an [EmphasisKind] node for a single delimiter
// and a [StrongKind] node otherwise.
func (ep emphasisProcessor) Wrap(doc *Document, n int) Node {
	if n == 1 {
		return doc.NewNode(EmphasisKind)
	}
	return doc.NewNode(StrongKind)
}
