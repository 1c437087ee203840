package analyzer

import "strings"

type RegionKind string

const (
	RegionHeader  RegionKind = "header"
	RegionFooter  RegionKind = "footer"
	RegionSidebar RegionKind = "sidebar"
	RegionList    RegionKind = "list"
)

// Region is a captured piece of the page. Header, footer and sidebar regions
// are cut out of the tree; list regions are captured in place.
type Region struct {
	Kind     RegionKind
	Node     NodeID
	Source   string
	Markdown string
	Group    *ListGroup
}

// ListGroup wraps the components of an alternating sibling pattern, e.g.
// h2/div/p repeated, into one synthetic item per component.
type ListGroup struct {
	Node  NodeID
	Items []NodeID
}

// isHidden reports whether an element is invisible. A bare hidden attribute
// only counts together with a visibility rule in the inline style.
func (t *Tree) isHidden(id NodeID) bool {
	n := &t.nodes[id]
	if strings.EqualFold(n.Attrs["aria-hidden"], "true") {
		return true
	}
	style, ok := n.Attrs["style"]
	if !ok {
		return false
	}
	style = strings.ToLower(strings.Join(strings.Fields(style), ""))
	if strings.Contains(style, "display:none") {
		return true
	}
	_, hidden := n.Attrs["hidden"]
	return strings.Contains(style, "visibility") && hidden
}

func (d *Document) stripHidden() {
	var hidden []NodeID
	for _, c := range d.Tree.Children(d.Body) {
		d.Tree.Walk(c, func(id NodeID) bool {
			if d.Tree.Node(id).Kind != ElementNode {
				return false
			}
			if d.Tree.isHidden(id) {
				hidden = append(hidden, id)
				return false
			}
			return true
		})
	}
	for _, id := range hidden {
		d.Tree.Remove(id)
	}
}

// findFirst returns the first element below root, in document order, that
// satisfies match.
func (t *Tree) findFirst(root NodeID, match func(NodeID) bool) NodeID {
	found := NoNode
	t.Walk(root, func(id NodeID) bool {
		if found != NoNode {
			return false
		}
		if t.nodes[id].Kind == ElementNode && id != root && match(id) {
			found = id
			return false
		}
		return true
	})
	return found
}

// extractLandmark cuts out the first element that is a <name> tag, carries
// the class name, or has id name, trying each criterion in that order.
func (d *Document) extractLandmark(kind RegionKind) *Region {
	name := string(kind)
	criteria := []func(NodeID) bool{
		func(id NodeID) bool { return d.Tree.Node(id).Tag == name },
		func(id NodeID) bool { return d.Tree.HasClass(id, name) },
		func(id NodeID) bool { return d.Tree.Node(id).ID == name },
	}
	for _, match := range criteria {
		if id := d.Tree.findFirst(d.Body, match); id != NoNode {
			r := d.capture(kind, id)
			d.Tree.Remove(id)
			return &r
		}
	}
	return nil
}

func (d *Document) extractSidebars() {
	var found []NodeID
	d.Tree.Walk(d.Body, func(id NodeID) bool {
		if d.Tree.Node(id).Kind != ElementNode {
			return false
		}
		if id != d.Body && (d.Tree.HasClass(id, "sidebar") || d.Tree.Node(id).ID == "sidebar") {
			found = append(found, id)
			return false
		}
		return true
	})
	for _, id := range found {
		d.Sidebars = append(d.Sidebars, d.capture(RegionSidebar, id))
		d.Tree.Remove(id)
	}
}

func (d *Document) capture(kind RegionKind, id NodeID) Region {
	return Region{
		Kind:     kind,
		Node:     id,
		Source:   d.Tree.HTML(id),
		Markdown: d.Render(id),
	}
}
