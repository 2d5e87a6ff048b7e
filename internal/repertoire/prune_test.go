package repertoire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/repertoire/internal/board"
)

func whiteGroups(f *fixture) []PositionGroup {
	forest := BuildForest(f.edges, board.White)
	return GroupByPosition(SelectLines(forest, ColorEquals(board.White), false))
}

func TestMarkPlayedScenarioC(t *testing.T) {
	groups := whiteGroups(scenarioA())
	require.Len(t, groups, 1)

	groups = MarkPlayed(groups, 1)
	require.Len(t, groups, 1, "Nf3 is still pending")
	assert.True(t, groups[0].Moves[0].Played)

	groups = MarkPlayed(groups, 3)
	assert.Empty(t, groups)
}

func TestMarkPlayedIgnoresUnknownAndOpponentEdges(t *testing.T) {
	groups := whiteGroups(scenarioA())

	groups = MarkPlayed(groups, 42)
	require.Len(t, groups, 1)

	// The reply is not a practised move, so nothing becomes finished.
	groups = MarkPlayed(groups, 2)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].OurMoveCount())
}

func TestMarkPlayedPrunesFinishedBranches(t *testing.T) {
	f := &fixture{}
	f.add(board.White, "A", "B", "e4", 1)
	f.add(board.White, "B", "C", "e5", 2)
	nf3 := f.add(board.White, "C", "D", "Nf3", 3)
	f.add(board.White, "C", "E", "Bc4", 3)

	groups := whiteGroups(f)
	require.Len(t, groups, 1)
	e5 := groups[0].Moves[0].Children[0]
	require.Len(t, e5.Children, 2)
	require.Len(t, e5.Children[1].MultipleChoices, 2)

	groups = MarkPlayed(groups, nf3)
	require.Len(t, groups, 1)
	e5 = groups[0].Moves[0].Children[0]
	assert.Equal(t, []string{"Bc4"}, moveNames(e5.Children))
	assert.Nil(t, e5.Children[0].MultipleChoices)
}

func TestMarkPlayedDropsMovesFromGroup(t *testing.T) {
	f := &fixture{}
	e4 := f.add(board.White, "A", "B", "e4", 1)
	d4 := f.add(board.White, "A", "C", "d4", 1)

	groups := whiteGroups(f)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Moves, 2)

	groups = MarkPlayed(groups, e4)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"d4"}, moveNames(groups[0].Moves))
	assert.Nil(t, groups[0].Multiple)

	groups = MarkPlayed(groups, d4)
	assert.Empty(t, groups)
}

func TestMarkPlayedDropsLineWithoutPractisedMoves(t *testing.T) {
	// A line that never had a practised move has nothing pending.
	groups := []PositionGroup{{
		Fen:   lf("A", "b"),
		Color: board.White,
		Moves: []*TreeNode{{Edge: &MoveEdge{ID: 9, Move: "e5"}}},
	}}
	assert.Empty(t, MarkPlayed(groups, 9))
}

func TestCloneGroups(t *testing.T) {
	groups := whiteGroups(scenarioA())
	clone := CloneGroups(groups)

	clone[0].Moves[0].Played = true
	clone[0].Moves[0].Edge.Move = "d4"
	clone[0].Moves[0].Children = nil
	clone[0].PriorMoves = append(clone[0].PriorMoves, "x")

	assert.False(t, groups[0].Moves[0].Played)
	assert.Equal(t, "e4", groups[0].Moves[0].Move())
	assert.Len(t, groups[0].Moves[0].Children, 1)
	assert.Empty(t, groups[0].PriorMoves)

	assert.Nil(t, CloneGroups(nil))
}
