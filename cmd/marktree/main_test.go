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

package main

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/marktree"
)

func TestPrintTree(t *testing.T) {
	doc := marktree.Parse([]byte("# Hi\n\n- [a](/u)\n"))
	got := new(strings.Builder)
	if err := printTree(got, doc, false); err != nil {
		t.Fatal(err)
	}
	want := "Document\n" +
		"  Heading level=1\n" +
		"    Text \"Hi\"\n" +
		"  List bullet='-' tight\n" +
		"    ListItem\n" +
		"      Paragraph\n" +
		"        Link destination=\"/u\"\n" +
		"          Text \"a\"\n"
	if diff := cmp.Diff(want, got.String()); diff != "" {
		t.Errorf("printTree (-want +got):\n%s", diff)
	}
}

func TestPrintTreeSpans(t *testing.T) {
	doc := marktree.Parse([]byte("hi"))
	got := new(strings.Builder)
	if err := printTree(got, doc, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.String(), "Paragraph 0:0+2") {
		t.Errorf("printTree(..., true) = %q; want paragraph span 0:0+2", got)
	}
}
