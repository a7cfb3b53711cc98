package tree

// Stats summarizes the shape of a tree.
type Stats struct {
	Live          int     // Live points
	IdentitySpace int     // Identities ever assigned, removed ones included
	Dimension     int     // Vector dimension
	Nodes         int     // Allocated arena nodes
	Members       int     // Points stored as members instead of nodes
	FreeSlots     int     // Arena slots waiting for reuse
	RootLevel     int32   // Level of the root, 0 for an empty tree
	MinLevel      int32   // Lowest node level, 0 for an empty tree
	Depth         int     // Edges on the longest root-to-leaf path
	Truncation    int     // Depth bound, -1 when unbounded
	Base          float64 // Expansion base
}

// Stats walks the tree and returns its summary.
func (t *Tree) Stats() Stats {
	free := int(t.free.GetCardinality())
	st := Stats{
		Live:          t.points.Live(),
		IdentitySpace: t.points.Len(),
		Dimension:     t.points.Dimension(),
		Nodes:         len(t.nodes) - free,
		FreeSlots:     free,
		Truncation:    t.truncation,
		Base:          t.base,
	}
	if t.root == nilNode {
		return st
	}

	st.RootLevel = t.nodes[t.root].level
	st.MinLevel = st.RootLevel

	type frame struct {
		idx   uint32
		depth int
	}
	stack := []frame{{idx: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[f.idx]
		st.Members += len(n.members)
		st.MinLevel = min(st.MinLevel, n.level)
		st.Depth = max(st.Depth, f.depth)
		for _, c := range n.children {
			stack = append(stack, frame{idx: c, depth: f.depth + 1})
		}
	}
	return st
}
