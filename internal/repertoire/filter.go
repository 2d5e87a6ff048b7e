package repertoire

// SelectLines collects the runs of our moves that satisfy pred. Opponent
// moves are walked through and copied into an open line. When an our-move
// fails the predicate the line stops on that branch, but the walk continues
// below it and a later match opens a new, independent line.
//
// With preventDoubles every edge is handled once across the traversal and
// the first path to reach it wins.
func SelectLines(forest []*TreeNode, pred Predicate, preventDoubles bool) []Line {
	s := &selector{pred: pred}
	if preventDoubles {
		s.seen = make(map[int64]bool)
	}
	for _, root := range forest {
		s.walk(root, nil)
	}
	return s.lines
}

type selector struct {
	pred  Predicate
	seen  map[int64]bool
	lines []Line
}

// walk visits node. cur is the copy of node's parent inside the open line,
// or nil when no line is open on this branch.
func (s *selector) walk(node *TreeNode, cur *TreeNode) {
	if s.seen != nil {
		if s.seen[node.ID()] {
			return
		}
		s.seen[node.ID()] = true
	}

	if !node.Ours {
		if cur == nil {
			s.walkChildren(node, nil)
			return
		}
		cp := node.copyNode(cur)
		s.walkChildren(node, cp)
		// A reply whose continuations all stopped matching adds nothing.
		if len(cp.Children) > 0 || len(node.Children) == 0 {
			cur.Children = append(cur.Children, cp)
		}
		return
	}

	if !s.pred.Match(node) {
		s.walkChildren(node, nil)
		return
	}

	if cur != nil {
		cp := node.copyNode(cur)
		cur.Children = append(cur.Children, cp)
		s.walkChildren(node, cp)
		return
	}

	// Reserve the slot so lines come out in the order they were opened.
	slot := len(s.lines)
	s.lines = append(s.lines, Line{})
	cp := node.copyNode(nil)
	s.walkChildren(node, cp)
	s.lines[slot] = newLine(cp)
}

func (s *selector) walkChildren(node, cur *TreeNode) {
	for _, child := range node.Children {
		s.walk(child, cur)
	}
}
