package repertoire

// MarkPlayed flags every node carrying edgeID as played and removes every
// line, and every branch inside a line, whose practised moves are now all
// played. Groups left without moves are dropped. The input is modified in
// place; the returned slice is what remains.
func MarkPlayed(groups []PositionGroup, edgeID int64) []PositionGroup {
	var out []PositionGroup
	for _, g := range groups {
		var moves []*TreeNode
		for _, m := range g.Moves {
			m.Walk(func(n *TreeNode) bool {
				if n.ID() == edgeID {
					n.Played = true
				}
				return true
			})
			if pendingMoves(m) == 0 {
				continue
			}
			pruneBranches(m)
			moves = append(moves, m)
		}
		if len(moves) == 0 {
			continue
		}
		g.Moves = moves
		g.Multiple = choicesOf(moves)
		out = append(out, g)
	}
	return out
}

// pendingMoves counts the practised moves below and including n that are not
// played yet.
func pendingMoves(n *TreeNode) int {
	count := 0
	n.Walk(func(m *TreeNode) bool {
		if m.Practised() && !m.Played {
			count++
		}
		return true
	})
	return count
}

func practisedMoves(n *TreeNode) int {
	count := 0
	n.Walk(func(m *TreeNode) bool {
		if m.Practised() {
			count++
		}
		return true
	})
	return count
}

// pruneBranches drops child branches that had practised moves and now have
// none pending.
func pruneBranches(n *TreeNode) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if practisedMoves(c) > 0 && pendingMoves(c) == 0 {
			continue
		}
		pruneBranches(c)
		kept = append(kept, c)
	}
	n.Children = kept
	choices := choicesOf(kept)
	for _, c := range kept {
		c.MultipleChoices = choices
	}
}

// CloneGroups deep-copies groups so a holder can hand them out while keeping
// its own copy unchanged.
func CloneGroups(groups []PositionGroup) []PositionGroup {
	if groups == nil {
		return nil
	}
	out := make([]PositionGroup, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].PriorMoves = append([]string(nil), g.PriorMoves...)
		out[i].Multiple = append([]Choice(nil), g.Multiple...)
		out[i].Moves = make([]*TreeNode, len(g.Moves))
		for j, m := range g.Moves {
			out[i].Moves[j] = cloneNode(m, nil)
		}
	}
	return out
}

func cloneNode(n, parent *TreeNode) *TreeNode {
	cp := *n
	cp.parent = parent
	if n.Edge != nil {
		e := *n.Edge
		cp.Edge = &e
	}
	if n.Recommendation != nil {
		r := *n.Recommendation
		cp.Recommendation = &r
	}
	cp.MultipleChoices = append([]Choice(nil), n.MultipleChoices...)
	cp.Children = nil
	for _, c := range n.Children {
		cp.Children = append(cp.Children, cloneNode(c, &cp))
	}
	return &cp
}
