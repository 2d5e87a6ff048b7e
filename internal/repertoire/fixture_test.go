package repertoire

import (
	"github.com/hailam/repertoire/internal/board"
)

// Real positions used by the scenario tests.
const (
	fenStart       = board.StartFEN
	fenE4          = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	fenE4NoEP      = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	fenE4E5        = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"
	fenE4E5Nf3     = "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	fenNf3         = "rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1"
	fenNf3E5       = "rnbqkbnr/pppp1ppp/8/4p3/8/5N2/PPPPPPPP/RNBQKB1R w KQkq e6 0 2"
	fenNf3E5E4     = "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq e3 0 2"
	fenKnightsNc6  = "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"
	fenRuyLopez    = "r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3"
	fenItalian     = "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3"
	fenSicilian    = "rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2"
	fenSicilianNf3 = "rnbqkbnr/pp1ppppp/8/2p5/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
)

// lf builds a structurally valid FEN whose identity is label. Tests that only
// care about tree shape use it instead of real positions.
func lf(label, side string) string {
	return "8/8/8/8/8/8/8/8 " + side + " " + label + " - 0 1"
}

type fixture struct {
	edges []MoveEdge
	next  int64
}

type edgeOption func(*MoveEdge)

func practised(count, failed, streak int) edgeOption {
	return func(e *MoveEdge) {
		e.PracticeCount = count
		e.PracticeFailed = failed
		e.PracticeInARow = streak
	}
}

func deltas(d ...int) edgeOption {
	return func(e *MoveEdge) { e.RecentIntervalDeltas = d }
}

func autoplay() edgeOption {
	return func(e *MoveEdge) { e.Autoplay = true }
}

func groups(ids ...int64) edgeOption {
	return func(e *MoveEdge) { e.GroupIDs = ids }
}

// add appends an edge between two labelled positions. White moves on odd
// plies, so the side to move follows from ply.
func (f *fixture) add(color board.Color, before, after, san string, ply int, opts ...edgeOption) int64 {
	side, next := "w", "b"
	if ply%2 == 0 {
		side, next = "b", "w"
	}
	return f.addFEN(color, lf(before, side), lf(after, next), san, ply, opts...)
}

// addFEN appends an edge between two explicit FENs.
func (f *fixture) addFEN(color board.Color, before, after, san string, ply int, opts ...edgeOption) int64 {
	f.next++
	e := MoveEdge{
		ID:            f.next,
		Color:         color,
		FenBefore:     before,
		FenAfter:      after,
		Move:          san,
		HalfMoveIndex: ply,
	}
	for _, opt := range opts {
		opt(&e)
	}
	f.edges = append(f.edges, e)
	return e.ID
}

func moveNames(nodes []*TreeNode) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Move())
	}
	return names
}

func lineIDs(lines []Line) map[int64]int {
	counts := make(map[int64]int)
	for _, l := range lines {
		for _, n := range l.Moves {
			counts[n.ID()]++
		}
	}
	return counts
}
