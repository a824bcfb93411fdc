// Package vdf reads and writes Valve's text key-value format as used by
// Steam's localconfig.vdf. Documents are parsed into an ordered tree that
// keeps unknown keys, duplicate keys and sibling order intact, so a single
// field can be rewritten without disturbing anything else.
package vdf

import "strings"

// Node is one brace-delimited block. The top-level document is also a Node,
// with an empty Key, holding the file's top-level entries.
type Node struct {
	Key      string
	Children []Entry
}

// Entry is either a key/value pair (Node == nil) or a nested block.
type Entry struct {
	Key   string
	Value string
	Node  *Node
}

// IsNode reports whether the entry is a nested block.
func (e Entry) IsNode() bool { return e.Node != nil }

// KeyValue builds a key/value entry.
func KeyValue(key, value string) Entry {
	return Entry{Key: key, Value: value}
}

// KeyNode builds a block entry. The node's Key is forced to match.
func KeyNode(key string, n *Node) Entry {
	if n == nil {
		n = &Node{}
	}
	n.Key = key
	return Entry{Key: key, Node: n}
}

// NewNode returns an empty block named key.
func NewNode(key string) *Node {
	return &Node{Key: key}
}

// Value returns the first key/value child named key. Blocks with the same
// name are skipped.
func (n *Node) Value(key string) (string, bool) {
	if i := n.indexValue(key); i >= 0 {
		return n.Children[i].Value, true
	}
	return "", false
}

// SetValue replaces the first key/value child named key in place, or appends
// a new one when there is none. It reports whether an existing entry was
// replaced.
func (n *Node) SetValue(key, value string) bool {
	if i := n.indexValue(key); i >= 0 {
		n.Children[i].Value = value
		return true
	}
	n.Children = append(n.Children, KeyValue(key, value))
	return false
}

// DeleteValue removes the first key/value child named key. Later duplicates
// are left alone.
func (n *Node) DeleteValue(key string) bool {
	i := n.indexValue(key)
	if i < 0 {
		return false
	}
	n.Children = append(n.Children[:i:i], n.Children[i+1:]...)
	return true
}

// Child returns the first block child named key (case-sensitive).
func (n *Node) Child(key string) *Node {
	for _, e := range n.Children {
		if e.Node != nil && e.Key == key {
			return e.Node
		}
	}
	return nil
}

// ChildFold is Child with case-insensitive matching.
func (n *Node) ChildFold(key string) *Node {
	for _, e := range n.Children {
		if e.Node != nil && strings.EqualFold(e.Key, key) {
			return e.Node
		}
	}
	return nil
}

// AppendNode adds an empty block named key as the last child and returns it.
func (n *Node) AppendNode(key string) *Node {
	child := NewNode(key)
	n.Children = append(n.Children, KeyNode(key, child))
	return child
}

// Nodes returns the block children in order.
func (n *Node) Nodes() []*Node {
	var out []*Node
	for _, e := range n.Children {
		if e.Node != nil {
			out = append(out, e.Node)
		}
	}
	return out
}

func (n *Node) indexValue(key string) int {
	for i, e := range n.Children {
		if e.Node == nil && e.Key == key {
			return i
		}
	}
	return -1
}
