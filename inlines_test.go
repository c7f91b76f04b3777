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

import "testing"

func TestDelimiterFlags(t *testing.T) {
	tests := []struct {
		prefix    string
		run       string
		suffix    string
		wantOpen  bool
		wantClose bool
	}{
		// Official examples for left-flanking and right-flanking:
		{"", "***", "abc", true, false},
		{"  ", "_", "abc", true, false},
		{"", "**", `"abc"`, true, false},
		{" ", "_", `"abc"`, true, false},
		{" abc", "***", "", false, true},
		{" abc", "_", "", false, true},
		{`"abc"`, "**", "", false, true},
		{`"abc"`, "_", "", false, true},
		{" abc", "***", "def", true, true},
		{`"abc"`, "_", `"def"`, true, true},
		{"abc ", "***", " def", false, false},
		{"a ", "_", " b", false, false},

		// Extra examples to demonstrate
		// https://spec.commonmark.org/0.30/#can-open-emphasis
		// and
		// https://spec.commonmark.org/0.30/#can-close-emphasis.
		{"aa", "_", `"bb"`, false, true},
		{`"bb"`, "_", "cc", true, false},
		{"foo-", "_", "(bar)", true, true},
		{"(bar)", "_", "", false, true},
		{"abc", "_", "def", false, false},
		{"abc", "*", "def", true, true},
		{" ", "*", "a", true, false},
		{"a", "*", "　", false, true},
	}
	for _, test := range tests {
		before, after := ' ', ' '
		if test.prefix != "" {
			r := []rune(test.prefix)
			before = r[len(r)-1]
		}
		if test.suffix != "" {
			after = []rune(test.suffix)[0]
		}
		proc := emphasisProcessor{test.run[0]}
		gotOpen, gotClose := delimiterFlags(proc, before, after)
		if gotOpen != test.wantOpen || gotClose != test.wantClose {
			t.Errorf("delimiterFlags(%q, %q, %q) = %t, %t; want %t, %t",
				test.run[0], before, after, gotOpen, gotClose, test.wantOpen, test.wantClose)
		}
	}
}

func TestNormalizeCodeSpan(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{" a ", "a"},
		{"a  b", "a b"},
		{"a\nb", "a b"},
		{"\n a \n", "a"},
		{"a\tb", "a\tb"},
	}
	for _, test := range tests {
		if got := normalizeCodeSpan(test.s); got != test.want {
			t.Errorf("normalizeCodeSpan(%q) = %q; want %q", test.s, got, test.want)
		}
	}
}

func TestEmphasisProcess(t *testing.T) {
	tests := []struct {
		opener int
		closer int
		want   int
	}{
		{1, 1, 1},
		{2, 2, 2},
		{1, 2, 1},
		{3, 1, 1},
		{2, 3, 2},
		{3, 3, 2},
		{3, 4, 2},
		{4, 6, 2},
		{5, 5, 2},
	}
	for _, test := range tests {
		got := emphasisProcessor{'*'}.Process(
			DelimiterRun{Len: test.opener, OriginalLen: test.opener, CanOpen: true},
			DelimiterRun{Len: test.closer, OriginalLen: test.closer, CanClose: true},
		)
		if got != test.want {
			t.Errorf("Process(opener=%d, closer=%d) = %d; want %d", test.opener, test.closer, got, test.want)
		}
	}
}

func TestEmphasisCanPair(t *testing.T) {
	tests := []struct {
		opener DelimiterRun
		closer DelimiterRun
		want   bool
	}{
		{DelimiterRun{OriginalLen: 1, CanOpen: true}, DelimiterRun{OriginalLen: 1, CanClose: true}, true},
		{DelimiterRun{OriginalLen: 1, CanOpen: true}, DelimiterRun{OriginalLen: 2, CanOpen: true, CanClose: true}, false},
		{DelimiterRun{OriginalLen: 2, CanOpen: true, CanClose: true}, DelimiterRun{OriginalLen: 1, CanClose: true}, false},
		{DelimiterRun{OriginalLen: 2, CanOpen: true, CanClose: true}, DelimiterRun{OriginalLen: 2, CanClose: true}, true},
		{DelimiterRun{OriginalLen: 3, CanOpen: true, CanClose: true}, DelimiterRun{OriginalLen: 3, CanClose: true}, true},
		{DelimiterRun{OriginalLen: 1, CanOpen: true}, DelimiterRun{OriginalLen: 2, CanClose: true}, true},
	}
	for _, test := range tests {
		if got := (emphasisProcessor{'*'}).canPair(test.opener, test.closer); got != test.want {
			t.Errorf("canPair(%+v, %+v) = %t; want %t", test.opener, test.closer, got, test.want)
		}
	}
}
