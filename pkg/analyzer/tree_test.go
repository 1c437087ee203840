package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeRemoveUnlinks(t *testing.T) {
	tree := NewTree()
	root := tree.NewElement("div")
	a := tree.NewElement("p")
	b := tree.NewElement("span")
	tree.AppendChild(root, a)
	tree.AppendChild(root, b)
	tree.AppendChild(a, tree.NewText("hello"))

	tree.Remove(a)

	assert.Equal(t, []NodeID{b}, tree.Children(root))
	assert.True(t, tree.Node(a).Removed)
	assert.Equal(t, NoNode, tree.Node(a).Parent)
	assert.Equal(t, "hello", tree.Text(a))
}

func TestTreeCloneIsIndependent(t *testing.T) {
	tree := NewTree()
	root := tree.NewElement("ul")
	li := tree.NewElement("li")
	tree.Node(li).Classes = []string{"item"}
	tree.AppendChild(root, li)
	tree.AppendChild(li, tree.NewText("one"))

	cp := tree.Clone(root)
	require.NotEqual(t, root, cp)
	assert.Equal(t, NoNode, tree.Node(cp).Parent)
	assert.Equal(t, []string{"li"}, tree.DescendantTags(cp))

	tree.Node(tree.Children(cp)[0]).Classes[0] = "changed"
	assert.True(t, tree.HasClass(li, "item"))
}

func TestTreeHTML(t *testing.T) {
	tree := NewTree()
	div := tree.NewElement("div")
	tree.Node(div).Classes = []string{"a", "b"}
	tree.Node(div).ID = "main"
	tree.Node(div).Attrs["data-x"] = "1"
	tree.AppendChild(div, tree.NewText("x < y"))

	assert.Equal(t, `<div class="a b" id="main" data-x="1">x &lt; y</div>`, tree.HTML(div))
}

func TestTreeLeaf(t *testing.T) {
	tree := NewTree()
	p := tree.NewElement("p")
	tree.AppendChild(p, tree.NewText("text only"))
	assert.True(t, tree.IsLeaf(p))

	tree.AppendChild(p, tree.NewElement("b"))
	assert.False(t, tree.IsLeaf(p))
	assert.Len(t, tree.ElementChildren(p), 1)
}
