package content

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is one entry in the site configuration tree. The authoring format
// mixes several container shapes (intro lessons, groups, children, flat item
// lists); they all normalize into the single Kids accessor so the tree can
// be walked by one recursive visitor regardless of nesting depth.
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	File     string  `json:"file"`
	Intro    *Node   `json:"intro"`
	Groups   []*Node `json:"groups"`
	Children []*Node `json:"children"`
	Items    []*Node `json:"items"`
}

// IsLeaf reports whether the node references a lesson file.
func (n *Node) IsLeaf() bool {
	return n.File != ""
}

// Kids returns every child container or leaf of the node, in document order.
func (n *Node) Kids() []*Node {
	kids := make([]*Node, 0, 1+len(n.Groups)+len(n.Children)+len(n.Items))
	if n.Intro != nil {
		kids = append(kids, n.Intro)
	}
	kids = append(kids, n.Groups...)
	kids = append(kids, n.Children...)
	kids = append(kids, n.Items...)
	return kids
}

// Tree is the site configuration: an ordered list of top-level sections.
type Tree struct {
	Sections []*Node `json:"sections"`
}

// LoadTree parses the site configuration file.
func LoadTree(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site config %s: %w", path, err)
	}
	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing site config %s: %w", path, err)
	}
	return &tree, nil
}

// Leaf is a lesson reference together with the section and group it sits
// under. Group is nil for section intros and flat section items.
type Leaf struct {
	Node    *Node
	Section *Node
	Group   *Node
}

// Leaves walks the tree once and returns every lesson reference in document
// order. Each leaf is visited exactly once; the nearest enclosing non-section
// container is reported as its group.
func (t *Tree) Leaves() []Leaf {
	var leaves []Leaf
	for _, section := range t.Sections {
		walk(section, section, nil, &leaves)
	}
	return leaves
}

func walk(n, section, group *Node, out *[]Leaf) {
	if n.IsLeaf() {
		*out = append(*out, Leaf{Node: n, Section: section, Group: group})
		return
	}
	for _, kid := range n.Kids() {
		next := group
		if n != section {
			next = n
		}
		walk(kid, section, next, out)
	}
}
