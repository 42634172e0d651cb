package chart

import (
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// MissingLabel labels a hierarchy level whose value is missing.
const MissingLabel = "(missing)"

// Node is one ring segment of a sunburst. Value is the sum of its leaves.
type Node struct {
	Label    string  `json:"label" yaml:"label"`
	Value    float64 `json:"value" yaml:"value"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// BuildSunburst nests the rows of t by the path columns, outermost first,
// and sums the values column into the leaves. Children keep the order in
// which they first appear. Rows with a missing value are skipped.
func BuildSunburst(t *dataset.Table, path []string, values string) (*Node, error) {
	if len(path) == 0 {
		return nil, dataset.Usagef("sunburst needs at least one path column")
	}
	levels := make([]*dataset.Column, len(path))
	for i, name := range path {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		levels[i] = c
	}
	vc, err := t.Column(values)
	if err != nil {
		return nil, err
	}
	root := &Node{Label: strings.Join(path, " / ")}
	index := map[*Node]map[string]*Node{}
	for r := 0; r < t.NumRows(); r++ {
		v, ok := vc.Cells[r].Float()
		if !ok {
			continue
		}
		n := root
		n.Value += v
		for _, c := range levels {
			label := c.Cells[r].String()
			if c.Cells[r].IsNull() {
				label = MissingLabel
			}
			kids := index[n]
			if kids == nil {
				kids = map[string]*Node{}
				index[n] = kids
			}
			child, ok := kids[label]
			if !ok {
				child = &Node{Label: label}
				kids[label] = child
				n.Children = append(n.Children, child)
			}
			child.Value += v
			n = child
		}
	}
	return root, nil
}

// Leaf is a leaf of the hierarchy with its full path.
type Leaf struct {
	Path  []string
	Value float64
}

// Leaves returns the leaves below n in depth-first order.
func (n *Node) Leaves() []Leaf {
	var out []Leaf
	var walk func(n *Node, prefix []string)
	walk = func(n *Node, prefix []string) {
		if len(n.Children) == 0 {
			out = append(out, Leaf{Path: prefix, Value: n.Value})
			return
		}
		for _, c := range n.Children {
			p := append(append([]string(nil), prefix...), c.Label)
			walk(c, p)
		}
	}
	for _, c := range n.Children {
		walk(c, []string{c.Label})
	}
	return out
}
