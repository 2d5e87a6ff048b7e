// Package pgnimport turns PGN games into repertoire move edges.
package pgnimport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/notnil/chess"

	"github.com/hailam/repertoire/internal/board"
	"github.com/hailam/repertoire/internal/repertoire"
)

var (
	// ErrNoMoves is returned when the input holds no playable moves.
	ErrNoMoves = errors.New("pgnimport: no moves found")
	// ErrInvalidPGN is returned when the input cannot be read as PGN.
	ErrInvalidPGN = errors.New("pgnimport: invalid PGN")
)

// Store is where imported edges are read from and written to.
type Store interface {
	FetchAll(ctx context.Context, userID string) ([]repertoire.MoveEdge, error)
	SaveEdges(ctx context.Context, userID string, edges []repertoire.MoveEdge) ([]repertoire.MoveEdge, error)
}

// Result summarises one import.
type Result struct {
	Games  int                   `json:"games"`
	Parsed int                   `json:"parsed"`
	Added  []repertoire.MoveEdge `json:"added"`
}

type edgeKey struct {
	color    board.Color
	position string
	move     string
}

func keyOf(e repertoire.MoveEdge) edgeKey {
	return edgeKey{color: e.Color, position: board.PositionKey(e.FenBefore), move: e.Move}
}

// Parse replays every game in r and returns one edge per distinct
// (position, move) for the given repertoire color. Returns the number of
// games read alongside the edges.
func Parse(r io.Reader, color board.Color) ([]repertoire.MoveEdge, int, error) {
	if color == board.NoColor {
		return nil, 0, fmt.Errorf("pgnimport: repertoire color required")
	}

	scanner := chess.NewScanner(r)
	seen := make(map[edgeKey]bool)
	var edges []repertoire.MoveEdge
	games := 0

	for scanner.Scan() {
		game := scanner.Next()
		games++

		positions := game.Positions()
		for i, move := range game.Moves() {
			before, after := positions[i], positions[i+1]
			e := repertoire.MoveEdge{
				Color:         color,
				FenBefore:     before.String(),
				FenAfter:      after.String(),
				Move:          chess.AlgebraicNotation{}.Encode(before, move),
				HalfMoveIndex: i + 1,
			}
			if k := keyOf(e); !seen[k] {
				seen[k] = true
				edges = append(edges, e)
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, games, fmt.Errorf("%w: %w", ErrInvalidPGN, err)
	}
	if len(edges) == 0 {
		return nil, games, ErrNoMoves
	}

	return edges, games, nil
}

// Merge returns the incoming edges that existing does not already hold.
func Merge(existing, incoming []repertoire.MoveEdge) []repertoire.MoveEdge {
	have := make(map[edgeKey]bool, len(existing))
	for _, e := range existing {
		have[keyOf(e)] = true
	}
	var added []repertoire.MoveEdge
	for _, e := range incoming {
		k := keyOf(e)
		if have[k] {
			continue
		}
		have[k] = true
		added = append(added, e)
	}
	return added
}

// Import parses r and stores the edges the user does not have yet.
func Import(ctx context.Context, store Store, userID string, r io.Reader, color board.Color) (Result, error) {
	incoming, games, err := Parse(r, color)
	if err != nil {
		return Result{Games: games}, err
	}

	existing, err := store.FetchAll(ctx, userID)
	if err != nil {
		return Result{Games: games}, err
	}

	res := Result{Games: games, Parsed: len(incoming)}
	added := Merge(existing, incoming)
	if len(added) == 0 {
		return res, nil
	}

	res.Added, err = store.SaveEdges(ctx, userID, added)
	if err != nil {
		return Result{Games: games}, err
	}
	return res, nil
}
