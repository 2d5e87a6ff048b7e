// Package eco classifies move sequences into named openings.
package eco

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Opening is an ECO classification.
type Opening struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Lookup classifies a move prefix.
type Lookup interface {
	// BestPrefixMatch returns the classification of the longest prefix of
	// moves that has one.
	BestPrefixMatch(moves []string) (Opening, bool)

	// HasFinerClassification reports whether some classified sequence
	// strictly extends moves. Callers stop querying deeper once it is false.
	HasFinerClassification(moves []string) bool
}

// Table is an in-memory opening table keyed by SAN sequence.
type Table struct {
	entries  map[string]Opening
	prefixes map[string]bool
}

// New creates an empty table.
func New() *Table {
	return &Table{
		entries:  make(map[string]Opening),
		prefixes: make(map[string]bool),
	}
}

// Add classifies a SAN sequence. A later entry for the same sequence wins.
func (t *Table) Add(moves []string, o Opening) {
	norm := normalize(moves)
	t.entries[key(norm)] = o
	for i := 0; i < len(norm); i++ {
		t.prefixes[key(norm[:i])] = true
	}
}

// Load reads an opening table from a TSV file.
func Load(filename string) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadReader(file)
}

// LoadReader reads a TSV table with the columns eco, name and pgn, in the
// layout of the Lichess chess-openings dataset. A header row is optional.
func LoadReader(r io.Reader) (*Table, error) {
	t := New()

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("eco: read line %d: %w", line+1, err)
		}
		line++

		if len(record) < 3 {
			return nil, fmt.Errorf("eco: line %d: need 3 columns, got %d", line, len(record))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "eco") {
			continue
		}

		moves := ParseMoveText(record[2])
		if len(moves) == 0 {
			continue
		}
		t.Add(moves, Opening{
			Code: strings.TrimSpace(record[0]),
			Name: strings.TrimSpace(record[1]),
		})
	}

	return t, nil
}

// ParseMoveText extracts SAN moves from PGN move text, dropping move numbers
// and results.
func ParseMoveText(text string) []string {
	var moves []string
	for _, tok := range strings.Fields(text) {
		if i := strings.LastIndex(tok, "."); i >= 0 {
			tok = tok[i+1:]
		}
		switch tok {
		case "", "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		moves = append(moves, tok)
	}
	return moves
}

func (t *Table) BestPrefixMatch(moves []string) (Opening, bool) {
	if t == nil {
		return Opening{}, false
	}
	norm := normalize(moves)
	for i := len(norm); i > 0; i-- {
		if o, ok := t.entries[key(norm[:i])]; ok {
			return o, true
		}
	}
	return Opening{}, false
}

func (t *Table) HasFinerClassification(moves []string) bool {
	if t == nil {
		return false
	}
	return t.prefixes[key(normalize(moves))]
}

// Size returns the number of classified sequences.
func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// normalize strips check and annotation suffixes so "Bb5+" and "Bb5" match.
func normalize(moves []string) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = strings.TrimRight(strings.TrimSpace(m), "+#!?")
	}
	return out
}

func key(moves []string) string {
	return strings.Join(moves, " ")
}
