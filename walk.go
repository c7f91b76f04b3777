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

// A Cursor describes a [Node] encountered during [Walk].
type Cursor struct {
	node   Node
	parent Node
}

// Node returns the current [Node].
func (c *Cursor) Node() Node {
	return c.node
}

// Parent returns the parent of the current [Node]
// (as returned by [*Cursor.Node])
// at the time it was entered.
func (c *Cursor) Parent() Node {
	return c.parent
}

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// If Pre is not nil, it is called for each node before the node's children are traversed (pre-order).
	// If Pre returns false, no children are traversed, and Post is not called for that node.
	Pre func(c *Cursor) bool
	// If Post is not nil, it is called for each node after the node's children are traversed (post-order).
	// If Post returns false, traversal is terminated and Walk returns immediately.
	Post func(c *Cursor) bool
}

// Walk traverses the tree rooted at root in depth-first order,
// calling [WalkOptions.Pre] and [WalkOptions.Post].
// Walk follows the tree's links and does not allocate a stack.
//
// The callbacks may unlink or replace the current node.
// If the current node is no longer attached to its parent after a callback,
// Walk continues with the sibling that followed it before the callback,
// so the remaining siblings are visited exactly once.
// A node removed in Pre does not have its children visited.
func Walk(root Node, opts *WalkOptions) {
	if root.IsZero() {
		return
	}
	cursor := new(Cursor)
	visit := func(f func(*Cursor) bool, n, parent Node) bool {
		if f == nil {
			return true
		}
		cursor.node = n
		cursor.parent = parent
		return f(cursor)
	}

	n, parent := root, root.Parent()
	for {
		next := n.Next()
		if visit(opts.Pre, n, parent) {
			if child := n.FirstChild(); !child.IsZero() && (n == root || n.Parent() == parent) {
				n, parent = child, n
				continue
			}
			if !visit(opts.Post, n, parent) {
				return
			}
		}

		// Move to the next sibling,
		// leaving each ancestor that has no more children.
		for {
			if n == root {
				return
			}
			if n.Parent() == parent {
				next = n.Next()
			}
			if !next.IsZero() {
				n = next
				break
			}
			n, parent = parent, parent.Parent()
			next = n.Next()
			if !visit(opts.Post, n, parent) {
				return
			}
		}
	}
}

// Inspect traverses the tree rooted at root in depth-first order.
// It calls f(n, true) when entering a node
// and f(n, false) when leaving it.
// If f(n, true) returns false, the node's children are skipped
// and f(n, false) is not called.
// If f(n, false) returns false, the traversal stops.
func Inspect(root Node, f func(n Node, entering bool) bool) {
	Walk(root, &WalkOptions{
		Pre: func(c *Cursor) bool {
			return f(c.Node(), true)
		},
		Post: func(c *Cursor) bool {
			return f(c.Node(), false)
		},
	})
}
