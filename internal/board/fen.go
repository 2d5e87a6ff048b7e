package board

import (
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// fenFields holds the fields of a FEN that identify a position.
type fenFields struct {
	placement string
	side      Color
	castling  string
	enPassant string
}

// parseFields splits a FEN into its identifying fields.
// Returns false for anything that cannot name a position.
func parseFields(fen string) (fenFields, bool) {
	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return fenFields{}, false
	}

	// Piece placement (field 0)
	if !validPlacement(parts[0]) {
		return fenFields{}, false
	}
	f := fenFields{placement: parts[0], castling: "-", enPassant: "-"}

	// Side to move (field 1)
	switch parts[1] {
	case "w":
		f.side = White
	case "b":
		f.side = Black
	default:
		return fenFields{}, false
	}

	// Castling rights (field 2, optional)
	if len(parts) > 2 {
		f.castling = parts[2]
	}

	// En passant square (field 3, optional)
	if len(parts) > 3 && validSquare(parts[3]) {
		f.enPassant = parts[3]
	}

	return f, true
}

// validPlacement checks the rank structure of the placement field without
// looking at piece legality.
func validPlacement(placement string) bool {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return false
	}
	for _, rank := range ranks {
		files := 0
		for _, c := range rank {
			switch {
			case c >= '1' && c <= '8':
				files += int(c - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", c):
				files++
			default:
				return false
			}
		}
		if files != 8 {
			return false
		}
	}
	return true
}

func validSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// SideToMove returns the side to move encoded in fen, or NoColor when the
// FEN is blank or malformed.
func SideToMove(fen string) Color {
	f, ok := parseFields(fen)
	if !ok {
		return NoColor
	}
	return f.side
}

// PositionKey returns the identity of the position described by fen.
// The en-passant target and the move counters are left out, so FENs that
// only disagree on those fields share a key. Malformed input yields "".
func PositionKey(fen string) string {
	f, ok := parseFields(fen)
	if !ok {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(f.placement) + len(f.castling) + 3)
	sb.WriteString(f.placement)
	sb.WriteByte(' ')
	if f.side == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(f.castling)
	return sb.String()
}
