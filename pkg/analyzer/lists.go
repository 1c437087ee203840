package analyzer

import "slices"

// DefaultListThreshold is the number of repeated siblings that makes a node
// a list.
const DefaultListThreshold = 5

// GetLists walks the body bottom-up and captures every node whose children
// repeat the same structure at least threshold times. Captured nodes stay in
// the tree so that parents are analyzed with their full content.
func (d *Document) GetLists(threshold int) {
	if threshold <= 0 {
		threshold = DefaultListThreshold
	}
	d.getLists(d.Body, threshold)
}

func (d *Document) getLists(id NodeID, threshold int) {
	children := d.Tree.ElementChildren(id)
	if len(children) == 0 {
		return
	}
	for _, c := range children {
		d.getLists(c, threshold)
	}

	if group := d.alternatingGroup(children, threshold); group != nil {
		r := d.capture(RegionList, group.Node)
		r.Group = group
		d.Lists = append(d.Lists, r)
		return
	}
	if d.maxSignatureRun(children) >= threshold || d.maxTagClassRun(children) >= threshold {
		d.Lists = append(d.Lists, d.capture(RegionList, id))
	}
}

// maxSignatureRun is the longest run of consecutive non-leaf siblings whose
// descendant tag sequences are identical.
func (d *Document) maxSignatureRun(children []NodeID) int {
	best, cur := 1, 1
	var prev []string
	for i, c := range children {
		sig := d.Tree.DescendantTags(c)
		if i > 0 && prev != nil && !d.Tree.IsLeaf(c) && slices.Equal(prev, sig) {
			cur++
			continue
		}
		best = max(best, cur)
		cur = 1
		prev = nil
		if !d.Tree.IsLeaf(c) {
			prev = sig
		}
	}
	return max(best, cur)
}

// maxTagClassRun is the longest run of consecutive non-leaf siblings sharing
// a tag and at least one class token (or all having none).
func (d *Document) maxTagClassRun(children []NodeID) int {
	best, cur := 1, 1
	prev := NoNode
	for _, c := range children {
		if prev != NoNode && !d.Tree.IsLeaf(c) && d.sameTagAndClass(prev, c) {
			cur++
			continue
		}
		best = max(best, cur)
		cur = 1
		prev = NoNode
		if !d.Tree.IsLeaf(c) {
			prev = c
		}
	}
	return max(best, cur)
}

func (d *Document) sameTagAndClass(a, b NodeID) bool {
	na, nb := d.Tree.Node(a), d.Tree.Node(b)
	if na.Tag != nb.Tag {
		return false
	}
	if len(na.Classes) == 0 && len(nb.Classes) == 0 {
		return true
	}
	for _, c := range nb.Classes {
		if slices.Contains(na.Classes, c) {
			return true
		}
	}
	return false
}

// alternatingGroup detects children that form a repeating sequence of tags,
// each component starting with the first child's tag and holding at least two
// elements. When at least threshold components match the first component
// tag for tag, they are wrapped into a detached ListGroup.
func (d *Document) alternatingGroup(children []NodeID, threshold int) *ListGroup {
	lead := d.Tree.Node(children[0]).Tag
	var components [][]NodeID
	component := []NodeID{children[0]}
	for _, c := range children[1:] {
		if d.Tree.Node(c).Tag != lead {
			component = append(component, c)
			continue
		}
		if len(component) < 2 {
			return nil
		}
		if len(components) > 0 && !d.sameTagSequence(components[0], component) {
			return nil
		}
		components = append(components, component)
		component = []NodeID{c}
	}
	if len(components) == 0 || len(component) < 2 || !d.sameTagSequence(components[0], component) {
		return nil
	}
	components = append(components, component)
	if len(components) < threshold {
		return nil
	}

	group := &ListGroup{Node: d.Tree.NewElement("div")}
	for _, comp := range components {
		item := d.Tree.NewElement("div")
		for _, c := range comp {
			d.Tree.AppendChild(item, d.Tree.Clone(c))
		}
		d.Tree.AppendChild(group.Node, item)
		group.Items = append(group.Items, item)
	}
	return group
}

func (d *Document) sameTagSequence(a, b []NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if d.Tree.Node(a[i]).Tag != d.Tree.Node(b[i]).Tag {
			return false
		}
	}
	return true
}

// ListItems returns the rendered items of every captured list, in capture
// order.
func (d *Document) ListItems() [][]string {
	out := make([][]string, 0, len(d.Lists))
	for _, r := range d.Lists {
		ids := d.Tree.Children(r.Node)
		if r.Group != nil {
			ids = r.Group.Items
		}
		items := make([]string, 0, len(ids))
		for _, id := range ids {
			items = append(items, d.Render(id))
		}
		out = append(out, items)
	}
	return out
}
