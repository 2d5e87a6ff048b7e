package repertoire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/repertoire/internal/board"
)

// scenarioA is 1. e4 e5 2. Nf3 in a white repertoire.
func scenarioA() *fixture {
	f := &fixture{}
	f.addFEN(board.White, fenStart, fenE4, "e4", 1)
	f.addFEN(board.White, fenE4, fenE4E5, "e5", 2)
	f.addFEN(board.White, fenE4E5, fenE4E5Nf3, "Nf3", 3)
	return f
}

// transposition reaches the same position by 1. e4 e5 2. Nf3 and by
// 1. Nf3 e5 2. e4, then continues 2... Nc6 3. Bb5 or 3. Bc4. Only the last
// two moves are new.
func transposition() *fixture {
	f := &fixture{}
	f.addFEN(board.White, fenStart, fenE4, "e4", 1, practised(3, 0, 3))
	f.addFEN(board.White, fenE4, fenE4E5, "e5", 2)
	f.addFEN(board.White, fenE4E5, fenE4E5Nf3, "Nf3", 3, practised(3, 0, 3))
	f.addFEN(board.White, fenStart, fenNf3, "Nf3", 1, practised(3, 0, 3))
	f.addFEN(board.White, fenNf3, fenNf3E5, "e5", 2)
	f.addFEN(board.White, fenNf3E5, fenNf3E5E4, "e4", 3, practised(3, 0, 3))
	f.addFEN(board.White, fenE4E5Nf3, fenKnightsNc6, "Nc6", 4)
	f.addFEN(board.White, fenKnightsNc6, fenRuyLopez, "Bb5", 5)
	f.addFEN(board.White, fenKnightsNc6, fenItalian, "Bc4", 5)
	return f
}

func TestBuildForestScenarioA(t *testing.T) {
	forest := BuildForest(scenarioA().edges, board.White)
	require.Len(t, forest, 1)

	e4 := forest[0]
	assert.Equal(t, "e4", e4.Move())
	assert.True(t, e4.Ours)
	assert.Equal(t, 1, e4.Ply)
	assert.Nil(t, e4.MultipleChoices)

	require.Len(t, e4.Children, 1)
	e5 := e4.Children[0]
	assert.Equal(t, "e5", e5.Move())
	assert.False(t, e5.Ours)
	assert.Same(t, e4, e5.Parent())

	require.Len(t, e5.Children, 1)
	nf3 := e5.Children[0]
	assert.Equal(t, "Nf3", nf3.Move())
	assert.True(t, nf3.Ours)
	assert.Equal(t, 3, nf3.Ply)
	assert.Equal(t, []string{"e4", "e5"}, nf3.PriorMoves())
	assert.Empty(t, nf3.Children)

	groups := GroupByPosition(SelectLines(forest, ColorEquals(board.White), false))
	require.Len(t, groups, 1)
	assert.Equal(t, fenStart, groups[0].Fen)
	assert.Equal(t, board.White, groups[0].Color)
	assert.Equal(t, []string{"e4"}, moveNames(groups[0].Moves))
	assert.Equal(t, 2, groups[0].OurMoveCount())

	line := groups[0].Moves[0]
	require.Len(t, line.Children, 1)
	assert.Equal(t, "e5", line.Children[0].Move())
	require.Len(t, line.Children[0].Children, 1)
	assert.Equal(t, "Nf3", line.Children[0].Children[0].Move())
}

func TestBuildForestScopesColor(t *testing.T) {
	f := scenarioA()
	f.addFEN(board.Black, fenStart, fenE4, "e4", 1)
	f.addFEN(board.Black, fenE4, fenSicilian, "c5", 2)
	f.addFEN(board.NoColor, fenStart, fenNf3, "Nf3", 1)

	white := BuildForest(f.edges, board.White)
	require.Len(t, white, 1)
	assert.Equal(t, 3, CountNodes(white))

	black := BuildForest(f.edges, board.Black)
	require.Len(t, black, 1)
	assert.False(t, black[0].Ours)
	require.Len(t, black[0].Children, 1)
	assert.True(t, black[0].Children[0].Ours)

	all := BuildForest(f.edges, board.NoColor)
	require.Len(t, all, 3)
	assert.Equal(t, 6, CountNodes(all))

	blank := all[2]
	assert.Equal(t, board.NoColor, blank.Color())
	assert.False(t, blank.Ours, "a blank color is never ours")
}

func TestBuildForestStopsAtRepeatedPosition(t *testing.T) {
	f := &fixture{}
	f.add(board.White, "A", "B", "m1", 1)
	f.add(board.White, "B", "C", "m2", 2)
	f.add(board.White, "C", "D", "m3", 3)
	f.add(board.White, "D", "C", "m4", 4)

	forest := BuildForest(f.edges, board.White)
	require.Len(t, forest, 1)
	assert.Equal(t, 4, CountNodes(forest))

	var last *TreeNode
	forest[0].Walk(func(n *TreeNode) bool {
		last = n
		return true
	})
	assert.Equal(t, "m4", last.Move())
	assert.Empty(t, last.Children)
}

func TestBuildForestMalformedFEN(t *testing.T) {
	f := &fixture{}
	f.add(board.White, "A", "B", "m1", 1)
	f.addFEN(board.White, lf("B", "b"), "not a fen", "m2", 2)
	f.addFEN(board.White, "not a fen", lf("Z", "w"), "m3", 3)

	forest := BuildForest(f.edges, board.White)
	require.Len(t, forest, 1)
	assert.Equal(t, 2, CountNodes(forest))

	m2 := forest[0].Children[0]
	assert.Equal(t, "m2", m2.Move())
	assert.Empty(t, m2.Children)
}

func TestBuildForestMultipleChoices(t *testing.T) {
	f := &fixture{}
	e4 := f.add(board.White, "A", "B", "e4", 1)
	d4 := f.add(board.White, "A", "C", "d4", 1)
	f.add(board.White, "B", "D", "e5", 2)
	f.add(board.White, "B", "E", "c5", 2)
	f.add(board.White, "C", "F", "d5", 2)

	forest := BuildForest(f.edges, board.White)
	require.Len(t, forest, 2)

	for _, root := range forest {
		require.Len(t, root.MultipleChoices, 2)
		assert.Equal(t, e4, root.MultipleChoices[0].ID)
		assert.Equal(t, d4, root.MultipleChoices[1].ID)
		assert.Equal(t, lf("C", "b"), root.MultipleChoices[1].FenAfter)
	}

	replies := forest[0].Children
	require.Len(t, replies, 2)
	for _, r := range replies {
		assert.Equal(t, []Choice{
			{ID: replies[0].ID(), Move: "e5", FenAfter: lf("D", "w")},
			{ID: replies[1].ID(), Move: "c5", FenAfter: lf("E", "w")},
		}, r.MultipleChoices)
	}

	require.Len(t, forest[1].Children, 1)
	assert.Nil(t, forest[1].Children[0].MultipleChoices)
}

func TestBuildForestTransposition(t *testing.T) {
	forest := BuildForest(transposition().edges, board.White)
	require.Len(t, forest, 2)
	assert.Equal(t, 2*6, CountNodes(forest))

	for _, root := range forest {
		var nc6 *TreeNode
		root.Walk(func(n *TreeNode) bool {
			if n.Move() == "Nc6" {
				nc6 = n
			}
			return true
		})
		require.NotNil(t, nc6)
		assert.Equal(t, []string{"Bb5", "Bc4"}, moveNames(nc6.Children))
	}
}

func TestPositionIndex(t *testing.T) {
	f := transposition()
	ptrs := make([]*MoveEdge, len(f.edges))
	for i := range f.edges {
		ptrs[i] = &f.edges[i]
	}
	idx := NewPositionIndex(ptrs)

	// Both transposed FENs share one key.
	children := idx.Children(board.PositionKey(fenNf3E5E4), board.White)
	require.Len(t, children, 1)
	assert.Equal(t, "Nc6", children[0].Move)

	assert.Empty(t, idx.Children(board.PositionKey(fenNf3E5E4), board.Black))
	assert.Empty(t, idx.Children("", board.White))
	assert.Equal(t, 7, idx.Size())
}
