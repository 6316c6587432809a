// Package bpmn turns an integration-flow process definition into a generic,
// namespace-aware element tree and offers the accessors extractors share.
package bpmn

// Node is one element of a parsed definition. Repeating children are always
// exposed as slices, whatever the source document serialized.
type Node struct {
	// Space is the namespace URI, Prefix the prefix used in the source.
	Space  string
	Prefix string
	// Name is the local element name, e.g. "messageFlow".
	Name string
	// Attrs maps attribute local names to values. Namespace declarations are dropped.
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Attr returns the attribute value or "".
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// ID is shorthand for the "id" attribute.
func (n *Node) ID() string { return n.Attr("id") }

// All returns the direct children with the given local name, in document order.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first direct child with the given local name, or nil.
func (n *Node) First(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the text of the first child with the given local name, or "".
func (n *Node) ChildText(name string) string {
	if c := n.First(name); c != nil {
		return c.Text
	}
	return ""
}

// Has reports whether a direct child with the given local name exists.
func (n *Node) Has(name string) bool { return n.First(name) != nil }

// Descendants returns every element below n with the given local name, in
// depth-first document order. n itself is not included.
func (n *Node) Descendants(name string) []*Node {
	var out []*Node
	for _, c := range n.children() {
		c.Walk(func(d *Node) bool {
			if d.Name == name {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// Walk visits n and its descendants depth-first. Returning false from fn
// prunes the subtree below the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

func (n *Node) children() []*Node {
	if n == nil {
		return nil
	}
	return n.Children
}
