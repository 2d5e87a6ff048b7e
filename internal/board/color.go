// Package board holds the small amount of chess knowledge the repertoire
// engine needs: side colors and tolerant FEN comparison. Legality and move
// generation live outside this module.
package board

import (
	"fmt"
	"strings"
)

// Color represents the side of a repertoire or the side to move.
// The zero value is NoColor so that edges with a blank color stay unscoped.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

// Other returns the opposite color. NoColor has no opposite.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// String returns the lower-case color name, or "" for NoColor.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
// Blank input yields NoColor without error.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	case "":
		return NoColor, nil
	default:
		return NoColor, fmt.Errorf("invalid color: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown values decode
// to NoColor so a bad record never fails a whole snapshot.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		*c = NoColor
		return nil
	}
	*c = parsed
	return nil
}
