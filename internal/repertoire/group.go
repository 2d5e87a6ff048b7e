package repertoire

import (
	"github.com/hailam/repertoire/internal/board"
)

type groupKey struct {
	position string
	color    board.Color
}

// GroupByPosition merges lines that start from the same (position, color)
// into one choice set. A move whose SAN is already present is dropped: it is
// the same choice reached another way. Lines from a malformed position are
// never merged.
func GroupByPosition(lines []Line) []PositionGroup {
	index := make(map[groupKey]int)
	var groups []PositionGroup

	for _, l := range lines {
		if l.Node == nil {
			continue
		}
		k := groupKey{position: board.PositionKey(l.FenBefore), color: l.Color}
		if i, ok := index[k]; ok && k.position != "" {
			g := &groups[i]
			if g.hasMove(l.Move) {
				continue
			}
			g.Moves = append(g.Moves, l.Node)
			g.Multiple = choicesOf(g.Moves)
			continue
		}

		index[k] = len(groups)
		groups = append(groups, PositionGroup{
			Fen:        l.FenBefore,
			Color:      l.Color,
			PriorMoves: l.PriorMoves,
			Moves:      []*TreeNode{l.Node},
		})
	}

	return groups
}

// Flatten turns groups back into one line per grouped move.
func Flatten(groups []PositionGroup) []Line {
	var lines []Line
	for _, g := range groups {
		for _, m := range g.Moves {
			l := newLine(m)
			l.FenBefore = g.Fen
			l.Color = g.Color
			if len(l.PriorMoves) == 0 {
				// Nodes decoded from a cache have no parent chain.
				l.PriorMoves = g.PriorMoves
			}
			lines = append(lines, l)
		}
	}
	return lines
}

// NextGroups materialises the level below node: the positions where we are
// next to move after node, each with its choice set.
func NextGroups(node *TreeNode) []PositionGroup {
	var lines []Line
	for _, child := range node.Children {
		child.Walk(func(n *TreeNode) bool {
			if n.Ours {
				lines = append(lines, newLine(n))
				return false
			}
			return true
		})
	}
	return GroupByPosition(lines)
}
