// Package repertoire rebuilds an opening repertoire tree from stored move
// edges and derives the views a player practises from: lines per color,
// never-practised lines, a size-budgeted recommended set and an
// opening-classified roadmap.
package repertoire

import (
	"slices"
	"time"

	"github.com/hailam/repertoire/internal/board"
)

// MoveEdge is one stored repertoire move. Color is the repertoire side the
// edge belongs to; the side to move comes from FenBefore.
type MoveEdge struct {
	ID                   int64       `json:"id"`
	Color                board.Color `json:"color"`
	FenBefore            string      `json:"fen_before"`
	FenAfter             string      `json:"fen_after"`
	Move                 string      `json:"move"`
	HalfMoveIndex        int         `json:"half_move_index"`
	Autoplay             bool        `json:"autoplay,omitempty"`
	PracticeCount        int         `json:"practice_count"`
	PracticeFailed       int         `json:"practice_failed"`
	PracticeInARow       int         `json:"practice_in_a_row"`
	LastUsedAt           time.Time   `json:"last_used_at,omitempty"`
	RecentIntervalDeltas []int       `json:"recent_interval_deltas,omitempty"`
	GroupIDs             []int64     `json:"group_ids,omitempty"`
}

// IsOurs reports whether the edge is a move by the repertoire side.
// Blank colors and malformed FENs are never ours.
func (e *MoveEdge) IsOurs() bool {
	if e == nil || e.Color == board.NoColor {
		return false
	}
	return board.SideToMove(e.FenBefore) == e.Color
}

// InGroup reports whether the edge is tagged with the given group id.
func (e *MoveEdge) InGroup(id int64) bool {
	return e != nil && slices.Contains(e.GroupIDs, id)
}

// Level is the urgency tier of a recommendation.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Weight is the tier weight used by target sizing and greedy ordering.
func (l Level) Weight() float64 {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	default:
		return 1
	}
}

// Recommendation annotates an our-move node with its practice urgency.
type Recommendation struct {
	Level     Level   `json:"level"`
	Factor    float64 `json:"factor"`
	Score     float64 `json:"score"`
	Candidate bool    `json:"candidate"`
}

// Priority is the tier weight plus the factor.
func (r Recommendation) Priority() float64 {
	return r.Level.Weight() + r.Factor
}

// Choice is one entry in a flattened sibling set.
type Choice struct {
	ID       int64  `json:"id"`
	Move     string `json:"move"`
	FenAfter string `json:"fen_after"`
}

// TreeNode wraps one move edge, or nothing for a virtual root.
type TreeNode struct {
	Edge            *MoveEdge       `json:"edge,omitempty"`
	Children        []*TreeNode     `json:"children,omitempty"`
	MultipleChoices []Choice        `json:"multiple_choices,omitempty"`
	Recommendation  *Recommendation `json:"recommendation,omitempty"`
	Ours            bool            `json:"ours"`
	Played          bool            `json:"played,omitempty"`
	Ply             int             `json:"ply"`

	parent *TreeNode
	// src points at the node in the full tree when this node is a filtered copy.
	src *TreeNode
}

func newNode(e *MoveEdge, parent *TreeNode) *TreeNode {
	n := &TreeNode{Edge: e, Ours: e.IsOurs(), parent: parent, Ply: 1}
	if parent != nil {
		n.Ply = parent.Ply + 1
	}
	return n
}

// ID returns the edge id, or 0 for a virtual root.
func (n *TreeNode) ID() int64 {
	if n == nil || n.Edge == nil {
		return 0
	}
	return n.Edge.ID
}

// Move returns the SAN of the edge.
func (n *TreeNode) Move() string {
	if n == nil || n.Edge == nil {
		return ""
	}
	return n.Edge.Move
}

// FenBefore returns the position the move is played from.
func (n *TreeNode) FenBefore() string {
	if n == nil || n.Edge == nil {
		return ""
	}
	return n.Edge.FenBefore
}

// FenAfter returns the position the move leads to.
func (n *TreeNode) FenAfter() string {
	if n == nil || n.Edge == nil {
		return ""
	}
	return n.Edge.FenAfter
}

// Color returns the repertoire side of the edge, NoColor for a virtual root.
func (n *TreeNode) Color() board.Color {
	if n == nil || n.Edge == nil {
		return board.NoColor
	}
	return n.Edge.Color
}

// Autoplay reports whether the system plays this move for the user.
func (n *TreeNode) Autoplay() bool {
	return n != nil && n.Edge != nil && n.Edge.Autoplay
}

// Practised reports whether the node counts towards practice counters.
func (n *TreeNode) Practised() bool {
	return n.Ours && !n.Autoplay()
}

// Parent returns the parent in the tree the node was built in.
func (n *TreeNode) Parent() *TreeNode {
	return n.parent
}

func (n *TreeNode) origin() *TreeNode {
	if n.src != nil {
		return n.src
	}
	return n
}

// PriorMoves returns the SAN moves leading to this node from its root in the
// full tree, oldest first.
func (n *TreeNode) PriorMoves() []string {
	var moves []string
	for p := n.origin().parent; p != nil; p = p.parent {
		if p.Edge != nil {
			moves = append(moves, p.Edge.Move)
		}
	}
	slices.Reverse(moves)
	return moves
}

// copyNode returns a childless copy of n attached to parent.
func (n *TreeNode) copyNode(parent *TreeNode) *TreeNode {
	return &TreeNode{
		Edge:           n.Edge,
		Recommendation: n.Recommendation,
		Ours:           n.Ours,
		Played:         n.Played,
		Ply:            n.Ply,
		parent:         parent,
		src:            n.origin(),
	}
}

// Walk visits n and its descendants depth-first, pre-order. Returning false
// from fn skips the node's children.
func (n *TreeNode) Walk(fn func(*TreeNode) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Line is one run of matching moves, rooted at its first matching our-move.
type Line struct {
	ID           int64       `json:"id"`
	Color        board.Color `json:"color"`
	FenBefore    string      `json:"fen_before"`
	FenAfter     string      `json:"fen_after"`
	Move         string      `json:"move"`
	PriorMoves   []string    `json:"prior_moves"`
	Node         *TreeNode   `json:"node"`
	Moves        []*TreeNode `json:"-"`
	OurMoveCount int         `json:"our_move_count"`
}

// newLine describes the line rooted at node, which may be a filtered copy.
func newLine(node *TreeNode) Line {
	setChoices(node)
	l := Line{
		ID:         node.ID(),
		Color:      node.Color(),
		FenBefore:  node.FenBefore(),
		FenAfter:   node.FenAfter(),
		Move:       node.Move(),
		PriorMoves: node.PriorMoves(),
		Node:       node,
	}
	node.Walk(func(m *TreeNode) bool {
		l.Moves = append(l.Moves, m)
		if m.Practised() {
			l.OurMoveCount++
		}
		return true
	})
	return l
}

// setChoices recomputes MultipleChoices for every sibling set below n.
func setChoices(n *TreeNode) {
	n.Walk(func(m *TreeNode) bool {
		choices := choicesOf(m.Children)
		for _, c := range m.Children {
			c.MultipleChoices = choices
		}
		return true
	})
}

// choicesOf returns the flattened choice set of siblings, or nil when there
// is nothing to choose between.
func choicesOf(siblings []*TreeNode) []Choice {
	if len(siblings) < 2 {
		return nil
	}
	choices := make([]Choice, 0, len(siblings))
	for _, s := range siblings {
		choices = append(choices, Choice{ID: s.ID(), Move: s.Move(), FenAfter: s.FenAfter()})
	}
	return choices
}

// PositionGroup is every known continuation at one (position, color),
// whichever path reached it.
type PositionGroup struct {
	Fen        string      `json:"fen"`
	Color      board.Color `json:"color"`
	PriorMoves []string    `json:"prior_moves"`
	Moves      []*TreeNode `json:"moves"`
	Multiple   []Choice    `json:"multiple,omitempty"`
}

func (g *PositionGroup) hasMove(san string) bool {
	for _, m := range g.Moves {
		if m.Move() == san {
			return true
		}
	}
	return false
}

// OurMoveCount counts practised our-moves across the group's lines.
func (g *PositionGroup) OurMoveCount() int {
	count := 0
	for _, m := range g.Moves {
		m.Walk(func(n *TreeNode) bool {
			if n.Practised() {
				count++
			}
			return true
		})
	}
	return count
}
