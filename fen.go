package chesscam

import (
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
	"github.com/pkg/errors"
)

// The 12 detector classes and their FEN letters.
var pieceLetters = map[string]string{
	"white-king":   "K",
	"white-queen":  "Q",
	"white-rook":   "R",
	"white-bishop": "B",
	"white-knight": "N",
	"white-pawn":   "P",
	"black-king":   "k",
	"black-queen":  "q",
	"black-rook":   "r",
	"black-bishop": "b",
	"black-knight": "n",
	"black-pawn":   "p",
}

var piecesByLabel = map[string]chess.Piece{
	"white-king":   chess.WhiteKing,
	"white-queen":  chess.WhiteQueen,
	"white-rook":   chess.WhiteRook,
	"white-bishop": chess.WhiteBishop,
	"white-knight": chess.WhiteKnight,
	"white-pawn":   chess.WhitePawn,
	"black-king":   chess.BlackKing,
	"black-queen":  chess.BlackQueen,
	"black-rook":   chess.BlackRook,
	"black-bishop": chess.BlackBishop,
	"black-knight": chess.BlackKnight,
	"black-pawn":   chess.BlackPawn,
}

// EncodePosition serializes the board as a FEN piece-placement field: rows
// top to bottom as ranks, consecutive empties run-length encoded, ranks
// joined with '/'. It encodes whatever it is given, legal position or not.
func EncodePosition(b BoardMatrix) string {
	ranks := make([]string, 0, 8)

	for row := 0; row < 8; row++ {
		var sb strings.Builder
		empty := 0
		for col := 0; col < 8; col++ {
			letter, ok := pieceLetters[b[row][col].Label]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(letter)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		ranks = append(ranks, sb.String())
	}

	return strings.Join(ranks, "/")
}

// ChessBoard converts the matrix to a chess/v2 board. Row 0 maps to rank 8,
// column 0 to file a.
func (b BoardMatrix) ChessBoard() *chess.Board {
	m := map[chess.Square]chess.Piece{}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece, ok := piecesByLabel[b[row][col].Label]
			if !ok {
				continue
			}
			m[chess.NewSquare(chess.File(col), chess.Rank(7-row))] = piece
		}
	}
	return chess.NewBoard(m)
}

// ParsePosition builds a chess/v2 position from a FEN piece-placement field,
// tolerating full FENs as well. A bare placement field gets white to move and
// no castling rights.
func ParsePosition(fen string) (*chess.Position, error) {
	full := strings.TrimSpace(fen)
	if full == "" {
		return nil, errors.New("empty position")
	}
	if !strings.Contains(full, " ") {
		full += " w - - 0 1"
	}

	fenOpt, err := chess.FEN(full)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid position %q", fen)
	}
	return chess.NewGame(fenOpt).Position(), nil
}

// KingsPresent reports whether each side still has its king on the board.
// Engines refuse positions without them, so the analyzer gates on this.
func KingsPresent(b *chess.Board) (white, black bool) {
	for _, p := range b.SquareMap() {
		switch p {
		case chess.WhiteKing:
			white = true
		case chess.BlackKing:
			black = true
		}
	}
	return white, black
}
