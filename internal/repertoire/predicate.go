package repertoire

import (
	"fmt"

	"github.com/hailam/repertoire/internal/board"
)

// PredicateKind selects what a Predicate tests.
type PredicateKind int

const (
	PredicateColor PredicateKind = iota
	PredicateNew
	PredicateGroup
	PredicateRecommended
)

func (k PredicateKind) String() string {
	switch k {
	case PredicateColor:
		return "color"
	case PredicateNew:
		return "new"
	case PredicateGroup:
		return "group"
	case PredicateRecommended:
		return "recommended"
	default:
		return fmt.Sprintf("PredicateKind(%d)", int(k))
	}
}

// Predicate decides which of our moves belong to a view. Opponent moves are
// never tested.
type Predicate struct {
	Kind    PredicateKind
	Color   board.Color
	GroupID int64
}

// ColorEquals matches our moves of the given repertoire color.
func ColorEquals(c board.Color) Predicate {
	return Predicate{Kind: PredicateColor, Color: c}
}

// IsNew matches moves that were never practised.
func IsNew() Predicate {
	return Predicate{Kind: PredicateNew}
}

// InGroup matches moves tagged with the given group.
func InGroup(id int64) Predicate {
	return Predicate{Kind: PredicateGroup, GroupID: id}
}

// IsRecommended matches recommendation candidates. Autoplay moves pass so
// they do not split a line.
func IsRecommended() Predicate {
	return Predicate{Kind: PredicateRecommended}
}

// Match reports whether node satisfies the predicate.
func (p Predicate) Match(n *TreeNode) bool {
	e := n.Edge
	if e == nil {
		return false
	}
	switch p.Kind {
	case PredicateColor:
		return e.Color == p.Color
	case PredicateNew:
		return e.PracticeCount == 0
	case PredicateGroup:
		return e.InGroup(p.GroupID)
	case PredicateRecommended:
		return e.Autoplay || (n.Recommendation != nil && n.Recommendation.Candidate)
	default:
		return false
	}
}
