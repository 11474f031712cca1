// Package focustrap confines keyboard focus to a region of an element tree,
// the way an accessible modal or drawer keeps Tab inside itself.
package focustrap

import "strings"

// Node is one element of a modelled document.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Hidden   bool
	Children []*Node

	parent *Node
}

// El builds a node and adopts children.
func El(tag string, attrs map[string]string, children ...*Node) *Node {
	n := &Node{Tag: strings.ToLower(tag), Attrs: attrs}
	n.Append(children...)
	return n
}

func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		c.parent = n
		n.Children = append(n.Children, c)
	}
}

func (n *Node) Parent() *Node { return n.parent }

func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Focusable matches
// button, [href], input, select, textarea, [tabindex]:not([tabindex="-1"])
// minus disabled elements.
func (n *Node) Focusable() bool {
	if _, disabled := n.Attrs["disabled"]; disabled {
		return false
	}
	switch n.Tag {
	case "button", "input", "select", "textarea":
		return true
	}
	if _, ok := n.Attrs["href"]; ok {
		return true
	}
	if ti, ok := n.Attrs["tabindex"]; ok {
		return strings.TrimSpace(ti) != "-1"
	}
	return false
}

// Visible reports whether neither n nor any ancestor is hidden.
func (n *Node) Visible() bool {
	for p := n; p != nil; p = p.parent {
		if p.Hidden {
			return false
		}
	}
	return true
}

// FocusableDescendants lists focusable, visible descendants of n in
// document order. n itself is not included.
func (n *Node) FocusableDescendants() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.Children {
			if c.Focusable() && c.Visible() {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Document tracks which node has focus.
type Document struct {
	Root   *Node
	active *Node
}

func NewDocument(root *Node) *Document {
	return &Document{Root: root}
}

// Active returns the focused node, nil when focus is on the document itself.
func (d *Document) Active() *Node { return d.active }

func (d *Document) Focus(n *Node) { d.active = n }

func (d *Document) Blur() { d.active = nil }
