package repertoire

import (
	"sort"

	"github.com/hailam/repertoire/internal/board"
)

// BuildForest assembles the repertoire forest for color, one root per first
// move. board.NoColor builds the forest across every color, including edges
// with a blank color. A position without continuation is a leaf; a position
// already on the current path is not expanded again.
func BuildForest(edges []MoveEdge, color board.Color) []*TreeNode {
	scoped := make([]*MoveEdge, 0, len(edges))
	for i := range edges {
		e := &edges[i]
		if color != board.NoColor && e.Color != color {
			continue
		}
		scoped = append(scoped, e)
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		return scoped[i].ID < scoped[j].ID
	})

	var roots, rest []*MoveEdge
	for _, e := range scoped {
		if e.HalfMoveIndex == 1 {
			roots = append(roots, e)
		} else {
			rest = append(rest, e)
		}
	}

	index := NewPositionIndex(rest)
	forest := make([]*TreeNode, 0, len(roots))
	rootSets := make(map[rootKey][]*TreeNode)
	var order []rootKey

	for _, e := range roots {
		node := newNode(e, nil)
		visited := make(map[string]bool)
		if key := board.PositionKey(e.FenBefore); key != "" {
			visited[key] = true
		}
		expand(index, node, visited)
		forest = append(forest, node)

		k := rootKey{position: board.PositionKey(e.FenBefore), color: e.Color, id: 0}
		if k.position == "" {
			// Unmatchable roots never share a sibling set.
			k.id = e.ID
		}
		if _, ok := rootSets[k]; !ok {
			order = append(order, k)
		}
		rootSets[k] = append(rootSets[k], node)
	}

	for _, k := range order {
		siblings := rootSets[k]
		choices := choicesOf(siblings)
		for _, n := range siblings {
			n.MultipleChoices = choices
		}
	}

	return forest
}

type rootKey struct {
	position string
	color    board.Color
	id       int64
}

// expand attaches the continuations of node's resulting position. visited
// holds the positions on the current root-to-node path.
func expand(index *PositionIndex, node *TreeNode, visited map[string]bool) {
	key := board.PositionKey(node.FenAfter())
	if key == "" || visited[key] {
		return
	}
	visited[key] = true
	defer delete(visited, key)

	for _, e := range index.Children(key, node.Color()) {
		child := newNode(e, node)
		expand(index, child, visited)
		node.Children = append(node.Children, child)
	}

	choices := choicesOf(node.Children)
	for _, c := range node.Children {
		c.MultipleChoices = choices
	}
}

// CountNodes returns the number of nodes in the forest.
func CountNodes(forest []*TreeNode) int {
	count := 0
	for _, root := range forest {
		root.Walk(func(*TreeNode) bool {
			count++
			return true
		})
	}
	return count
}
