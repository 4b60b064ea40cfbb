package chesscam

import (
	"github.com/corentings/chess/v2"
)

// SquareChange is one square whose occupant differs between two positions.
type SquareChange struct {
	Square chess.Square
	Before chess.Piece
	After  chess.Piece
}

// DiffBoards walks the board rank by rank and reports every square whose
// occupant changed between two recognized positions.
func DiffBoards(before, after *chess.Board) []SquareChange {
	var changes []SquareChange

	for r := chess.Rank1; r <= chess.Rank8; r++ {
		for f := chess.FileA; f <= chess.FileH; f++ {
			sq := chess.NewSquare(f, r)
			was := before.Piece(sq)
			now := after.Piece(sq)
			if was != now {
				changes = append(changes, SquareChange{Square: sq, Before: was, After: now})
			}
		}
	}

	return changes
}

// InferMove reads a single played move out of a diff: exactly one square lost
// a piece and exactly one square gained that same piece. Captures fit this
// shape; castling and promotions do not and come back ok=false. No legality
// checking happens here.
func InferMove(changes []SquareChange) (from, to chess.Square, ok bool) {
	var vacated, gained []SquareChange

	for _, ch := range changes {
		if ch.After == chess.NoPiece {
			vacated = append(vacated, ch)
		} else {
			gained = append(gained, ch)
		}
	}

	if len(vacated) != 1 || len(gained) != 1 {
		return chess.A1, chess.A1, false
	}
	if vacated[0].Before != gained[0].After {
		return chess.A1, chess.A1, false
	}

	return vacated[0].Square, gained[0].Square, true
}
