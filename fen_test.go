package chesscam

import (
	"testing"

	"github.com/corentings/chess/v2"
	"go.viam.com/test"
)

func TestEncodePositionEmpty(t *testing.T) {
	var b BoardMatrix
	test.That(t, EncodePosition(b), test.ShouldEqual, "8/8/8/8/8/8/8/8")
}

func TestEncodePositionSingleKing(t *testing.T) {
	var b BoardMatrix
	b[0][4] = PieceAssignment{Label: "white-king", Confidence: 0.9}
	test.That(t, EncodePosition(b), test.ShouldEqual, "4K3/8/8/8/8/8/8/8")
}

func TestEncodePositionStarting(t *testing.T) {
	back := []string{"rook", "knight", "bishop", "queen", "king", "bishop", "knight", "rook"}

	var b BoardMatrix
	for col := 0; col < 8; col++ {
		b[0][col] = PieceAssignment{Label: "black-" + back[col], Confidence: 0.9}
		b[1][col] = PieceAssignment{Label: "black-pawn", Confidence: 0.9}
		b[6][col] = PieceAssignment{Label: "white-pawn", Confidence: 0.9}
		b[7][col] = PieceAssignment{Label: "white-" + back[col], Confidence: 0.9}
	}

	test.That(t, EncodePosition(b), test.ShouldEqual,
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR")
}

func TestEncodePositionRunLengths(t *testing.T) {
	var b BoardMatrix
	b[3][1] = PieceAssignment{Label: "white-rook", Confidence: 0.9}
	b[3][4] = PieceAssignment{Label: "black-bishop", Confidence: 0.9}
	b[3][7] = PieceAssignment{Label: "white-knight", Confidence: 0.9}

	test.That(t, EncodePosition(b), test.ShouldEqual, "8/8/8/1R2b2N/8/8/8/8")
}

func TestEncodePositionIgnoresUnknownLabels(t *testing.T) {
	var b BoardMatrix
	b[4][4] = PieceAssignment{Label: "traffic-cone", Confidence: 0.9}
	test.That(t, EncodePosition(b), test.ShouldEqual, "8/8/8/8/8/8/8/8")
}

func TestChessBoard(t *testing.T) {
	var b BoardMatrix
	b[7][4] = PieceAssignment{Label: "white-king", Confidence: 0.9}
	b[0][4] = PieceAssignment{Label: "black-king", Confidence: 0.9}
	b[6][0] = PieceAssignment{Label: "white-pawn", Confidence: 0.9}

	board := b.ChessBoard()

	test.That(t, board.Piece(chess.E1), test.ShouldEqual, chess.WhiteKing)
	test.That(t, board.Piece(chess.E8), test.ShouldEqual, chess.BlackKing)
	test.That(t, board.Piece(chess.A2), test.ShouldEqual, chess.WhitePawn)
	test.That(t, board.Piece(chess.D4), test.ShouldEqual, chess.NoPiece)

	test.That(t, len(board.SquareMap()), test.ShouldEqual, 3)
}

func TestParsePosition(t *testing.T) {
	// a bare placement field gets the missing FEN fields filled in
	pos, err := ParsePosition("4k3/8/8/8/8/8/8/4K3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.Board().Piece(chess.E1), test.ShouldEqual, chess.WhiteKing)
	test.That(t, pos.Board().Piece(chess.E8), test.ShouldEqual, chess.BlackKing)

	// full FEN passes through
	pos, err = ParsePosition("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.Board().Piece(chess.E4), test.ShouldEqual, chess.WhitePawn)
}

func TestParsePositionRejectsGarbage(t *testing.T) {
	_, err := ParsePosition("")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParsePosition("not/a/board")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParsePosition("9/8/8/8/8/8/8/8")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestKingsPresent(t *testing.T) {
	pos, err := ParsePosition("4k3/8/8/8/8/8/8/4K3")
	test.That(t, err, test.ShouldBeNil)

	white, black := KingsPresent(pos.Board())
	test.That(t, white, test.ShouldBeTrue)
	test.That(t, black, test.ShouldBeTrue)

	pos, err = ParsePosition("8/8/8/8/8/8/8/4K3")
	test.That(t, err, test.ShouldBeNil)

	white, black = KingsPresent(pos.Board())
	test.That(t, white, test.ShouldBeTrue)
	test.That(t, black, test.ShouldBeFalse)
}
