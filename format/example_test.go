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

package format_test

import (
	"os"
	"strings"

	"zombiezen.com/go/marktree"
	"zombiezen.com/go/marktree/format"
)

func ExampleFormat() {
	doc := marktree.Parse([]byte(`
Release notes
=============


Changes in this release:
  + Faster *parsing* of [links]
 + Shortcut references such as [links] become collapsed,
   and [full references][ LINKS ] are normalized

~~~
go get zombiezen.com/go/marktree
~~~

[ links ]: https://www.example.com/  'Example'
`))
	out := new(strings.Builder)
	if err := format.Format(out, doc); err != nil {
		// Writing in-memory shouldn't fail.
		panic(err)
	}
	os.Stdout.WriteString(out.String())
	// Output:
	// # Release notes
	//
	// Changes in this release:
	//
	// + Faster *parsing* of [links][]
	// + Shortcut references such as [links][] become collapsed,
	//   and [full references][links] are normalized
	//
	// ~~~
	// go get zombiezen.com/go/marktree
	// ~~~
	//
	// [links]: https://www.example.com/ "Example"
}
