// Package explorer looks up which replies are played from a position in a
// games database.
package explorer

import (
	"context"
	"sort"
)

// Response is one reply played from a position.
type Response struct {
	Move  string  `json:"move"`
	UCI   string  `json:"uci,omitempty"`
	Games int     `json:"games"`
	Share float64 `json:"share"`
}

// Source returns the replies played from a position, most played first.
type Source interface {
	TopResponses(ctx context.Context, fen string) ([]Response, error)
}

// NoopSource knows no games. Use it when lookups are disabled.
type NoopSource struct{}

func (NoopSource) TopResponses(ctx context.Context, fen string) ([]Response, error) {
	return nil, nil
}

// sortByGames orders responses by games played, then by move.
func sortByGames(responses []Response) {
	sort.Slice(responses, func(i, j int) bool {
		if responses[i].Games != responses[j].Games {
			return responses[i].Games > responses[j].Games
		}
		return responses[i].Move < responses[j].Move
	})
}
