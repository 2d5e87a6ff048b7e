package repertoire

import (
	"github.com/hailam/repertoire/internal/board"
)

// PositionIndex maps a position to the edges played from it.
type PositionIndex struct {
	entries map[string][]*MoveEdge
}

// NewPositionIndex indexes edges by the tolerant key of FenBefore. Edges
// with a blank or malformed FenBefore cannot be reached and are left out.
func NewPositionIndex(edges []*MoveEdge) *PositionIndex {
	idx := &PositionIndex{entries: make(map[string][]*MoveEdge, len(edges))}
	for _, e := range edges {
		key := board.PositionKey(e.FenBefore)
		if key == "" {
			continue
		}
		idx.entries[key] = append(idx.entries[key], e)
	}
	return idx
}

// Children returns the edges of the given color played from the position
// with the given key, in insertion order.
func (idx *PositionIndex) Children(key string, color board.Color) []*MoveEdge {
	if idx == nil || key == "" {
		return nil
	}
	var out []*MoveEdge
	for _, e := range idx.entries[key] {
		if e.Color == color {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the number of distinct positions indexed.
func (idx *PositionIndex) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}
