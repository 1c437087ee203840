package analyzer

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeID addresses a node inside a Tree. IDs are never reused.
type NodeID int

// NoNode is the parent of roots and detached nodes.
const NoNode NodeID = -1

type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
)

// Node is a single element or text leaf. Children hold both kinds in
// document order.
type Node struct {
	Kind     NodeKind
	Tag      string
	Classes  []string
	ID       string
	Attrs    map[string]string
	Text     string
	Parent   NodeID
	Children []NodeID
	Removed  bool
}

// Tree is an arena of nodes. Removing a node marks it and unlinks it from
// its parent; the node and its subtree stay addressable so that captured
// regions can still be rendered.
type Tree struct {
	nodes []Node
}

func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

func (t *Tree) NewElement(tag string) NodeID {
	t.nodes = append(t.nodes, Node{
		Kind:   ElementNode,
		Tag:    tag,
		Attrs:  map[string]string{},
		Parent: NoNode,
	})
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) NewText(text string) NodeID {
	t.nodes = append(t.nodes, Node{
		Kind:   TextNode,
		Text:   text,
		Parent: NoNode,
	})
	return NodeID(len(t.nodes) - 1)
}

// AppendChild attaches child as the last child of parent. A child that is
// already attached elsewhere is moved.
func (t *Tree) AppendChild(parent, child NodeID) {
	if t.nodes[child].Parent != NoNode {
		t.unlink(child)
	}
	t.nodes[child].Parent = parent
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
}

// Remove detaches id from its parent and marks it removed.
func (t *Tree) Remove(id NodeID) {
	t.unlink(id)
	t.nodes[id].Removed = true
}

func (t *Tree) unlink(id NodeID) {
	parent := t.nodes[id].Parent
	if parent == NoNode {
		return
	}
	children := t.nodes[parent].Children
	for i, c := range children {
		if c == id {
			t.nodes[parent].Children = append(children[:i:i], children[i+1:]...)
			break
		}
	}
	t.nodes[id].Parent = NoNode
}

// Children returns all children of id, element and text.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].Children
}

// ElementChildren returns the direct element children of id.
func (t *Tree) ElementChildren(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// IsLeaf reports whether id has no element children.
func (t *Tree) IsLeaf(id NodeID) bool {
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Kind == ElementNode {
			return false
		}
	}
	return true
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the subtree of the visited node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, c := range append([]NodeID(nil), t.nodes[id].Children...) {
		t.Walk(c, fn)
	}
}

// DescendantTags lists the tag names of every element below id in pre-order,
// excluding id itself.
func (t *Tree) DescendantTags(id NodeID) []string {
	var tags []string
	for _, c := range t.nodes[id].Children {
		t.Walk(c, func(n NodeID) bool {
			if t.nodes[n].Kind == ElementNode {
				tags = append(tags, t.nodes[n].Tag)
			}
			return true
		})
	}
	return tags
}

// Clone deep-copies the subtree rooted at id. The copy is detached.
func (t *Tree) Clone(id NodeID) NodeID {
	src := t.nodes[id]
	var cp NodeID
	if src.Kind == TextNode {
		cp = t.NewText(src.Text)
	} else {
		cp = t.NewElement(src.Tag)
		n := &t.nodes[cp]
		n.Classes = append([]string(nil), src.Classes...)
		n.ID = src.ID
		for k, v := range src.Attrs {
			n.Attrs[k] = v
		}
	}
	for _, c := range src.Children {
		t.AppendChild(cp, t.Clone(c))
	}
	return cp
}

func (t *Tree) HasClass(id NodeID, class string) bool {
	for _, c := range t.nodes[id].Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Attr returns an attribute value, including class and id.
func (t *Tree) Attr(id NodeID, key string) (string, bool) {
	n := &t.nodes[id]
	switch key {
	case "class":
		return strings.Join(n.Classes, " "), len(n.Classes) > 0
	case "id":
		return n.ID, n.ID != ""
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// Text returns the concatenated text below id.
func (t *Tree) Text(id NodeID) string {
	var b strings.Builder
	t.Walk(id, func(n NodeID) bool {
		if t.nodes[n].Kind == TextNode {
			b.WriteString(t.nodes[n].Text)
		}
		return true
	})
	return b.String()
}

// HTML serializes the subtree rooted at id.
func (t *Tree) HTML(id NodeID) string {
	var b strings.Builder
	if err := html.Render(&b, t.toHTML(id)); err != nil {
		return ""
	}
	return b.String()
}

func (t *Tree) toHTML(id NodeID) *html.Node {
	n := &t.nodes[id]
	if n.Kind == TextNode {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}

	out := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	if len(n.Classes) > 0 {
		out.Attr = append(out.Attr, html.Attribute{Key: "class", Val: strings.Join(n.Classes, " ")})
	}
	if n.ID != "" {
		out.Attr = append(out.Attr, html.Attribute{Key: "id", Val: n.ID})
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Attr = append(out.Attr, html.Attribute{Key: k, Val: n.Attrs[k]})
	}

	for _, c := range n.Children {
		out.AppendChild(t.toHTML(c))
	}
	return out
}

// FromHTML copies an x/net/html subtree into the arena and returns its root.
// Comments, doctypes and whitespace-only text are dropped.
func (t *Tree) FromHTML(n *html.Node) NodeID {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return NoNode
		}
		return t.NewText(n.Data)
	case html.ElementNode:
	default:
		return NoNode
	}

	id := t.NewElement(n.Data)
	for _, a := range n.Attr {
		switch a.Key {
		case "class":
			t.nodes[id].Classes = strings.Fields(a.Val)
		case "id":
			t.nodes[id].ID = a.Val
		default:
			t.nodes[id].Attrs[a.Key] = a.Val
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := t.FromHTML(c); child != NoNode {
			t.AppendChild(id, child)
		}
	}
	return id
}
