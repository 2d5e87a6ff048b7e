package repertoire

import (
	"errors"

	"github.com/hailam/repertoire/internal/board"
)

var (
	ErrEdgeNotFound     = errors.New("repertoire: edge not found")
	ErrPositionNotFound = errors.New("repertoire: position not found")
)

// FindLine returns the line rooted at the first depth-first occurrence of the
// edge, with its full subtree and the moves that lead to it.
func FindLine(forest []*TreeNode, edgeID int64) (Line, bool) {
	n := findNode(forest, edgeID)
	if n == nil {
		return Line{}, false
	}
	return newLine(n), true
}

// findNode returns the first depth-first occurrence of the edge.
func findNode(forest []*TreeNode, edgeID int64) *TreeNode {
	var found *TreeNode
	for _, root := range forest {
		root.Walk(func(n *TreeNode) bool {
			if found != nil {
				return false
			}
			if n.ID() == edgeID {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// FindPosition collects every repertoire move played from the position fen,
// whichever path reached it. Moves sharing a SAN appear once.
func FindPosition(fen string, forest []*TreeNode) (PositionGroup, bool) {
	key := board.PositionKey(fen)
	if key == "" {
		return PositionGroup{}, false
	}

	var lines []Line
	for _, root := range forest {
		root.Walk(func(n *TreeNode) bool {
			if board.PositionKey(n.FenBefore()) == key {
				lines = append(lines, newLine(n))
			}
			return true
		})
	}

	groups := GroupByPosition(lines)
	if len(groups) == 0 {
		return PositionGroup{}, false
	}

	// Colors are grouped apart; fold them into one answer for a bare FEN.
	g := groups[0]
	for _, other := range groups[1:] {
		for _, m := range other.Moves {
			if !g.hasMove(m.Move()) {
				g.Moves = append(g.Moves, m)
			}
		}
	}
	g.Multiple = choicesOf(g.Moves)
	return g, true
}
