package query

import (
	"github.com/dsnet/bufr/tree"
)

func applySlice(nodes []*tree.Node, s Slice) []*tree.Node {
	if !s.Has {
		return nodes
	}
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}
	if end > len(nodes) {
		end = len(nodes)
	}
	if start >= end {
		return nil
	}
	return nodes[start:end]
}

func directChildren(n *tree.Node) []*tree.Node {
	switch {
	case n.Children != nil:
		return n.Children
	case n.Groups != nil:
		var out []*tree.Node
		for _, group := range n.Groups {
			out = append(out, group...)
		}
		return out
	default:
		return nil
	}
}

func directChildrenOfAll(nodes []*tree.Node) []*tree.Node {
	var out []*tree.Node
	for _, n := range nodes {
		out = append(out, directChildren(n)...)
	}
	return out
}

func flattenSelfAndDescendants(nodes []*tree.Node) []*tree.Node {
	var out []*tree.Node
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		out = append(out, n)
		for _, c := range directChildren(n) {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func allDescendantsOf(nodes []*tree.Node) []*tree.Node {
	var out []*tree.Node
	for _, n := range nodes {
		out = append(out, flattenSelfAndDescendants(directChildren(n))...)
	}
	return out
}

// Eval runs p against roots (typically a Message's root children) and
// returns the matching nodes, per §6.3's path-grammar semantics. Each
// segment's separator describes the relationship between the nodes
// matched by the previous segment and the candidate pool the next
// segment matches against: '/' steps to direct children, '>' to any
// descendant, '.' looks up a named attribute on the matched node
// itself.
func (p *Path) Eval(roots []*tree.Node) []*tree.Node {
	matched := applySlice(roots, p.RootSlice)
	for i, seg := range p.Segments {
		pool := matched
		if seg.Sep != SepAttribute {
			if i == 0 {
				if seg.Sep == SepDescendant {
					pool = flattenSelfAndDescendants(matched)
				}
			} else if seg.Sep == SepChild {
				pool = directChildrenOfAll(matched)
			} else {
				pool = allDescendantsOf(matched)
			}
		}

		var next []*tree.Node
		switch seg.Sep {
		case SepAttribute:
			for _, n := range pool {
				if a, ok := n.Attributes[seg.Attr]; ok {
					next = append(next, a)
				}
			}
		default:
			for _, n := range pool {
				if n.DescriptorID == seg.ID {
					next = append(next, n)
				}
			}
		}
		matched = applySlice(next, seg.Slice)
	}
	return matched
}
