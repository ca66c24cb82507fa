package rules

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// The coordinator never interprets a position or a move itself; everything
// rules-related goes through an Oracle.

var ErrIllegalMove = errors.New("illegal move")

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

type Outcome int

const (
	Continue Outcome = iota
	WhiteWon         // checkmate delivered by white
	BlackWon         // checkmate delivered by black
	Drawn            // stalemate or any other drawing rule
)

// Verdict describes the position after a legal move was applied.
type Verdict struct {
	SAN     string // canonical notation of the applied move
	FEN     string // resulting position
	Turn    Color  // side to move next
	Outcome Outcome
}

type Oracle interface {
	// StartingFEN returns the canonical initial position.
	StartingFEN() string
	// Apply replays history from the initial position, then applies move.
	// It returns ErrIllegalMove if the move is not legal in the resulting
	// position (or the game is already over), and an error if history
	// itself does not replay — which means the stored record is corrupt.
	Apply(history []string, move string) (Verdict, error)
}

// ChessOracle implements Oracle on top of corentings/chess. Moves are
// accepted in algebraic notation, with a UCI fallback.
type ChessOracle struct{}

func (ChessOracle) StartingFEN() string {
	return nchess.NewGame().FEN()
}

func (ChessOracle) Apply(history []string, move string) (Verdict, error) {
	game := nchess.NewGame()
	for _, san := range history {
		if err := game.PushNotationMove(san, nchess.AlgebraicNotation{}, nil); err != nil {
			return Verdict{}, fmt.Errorf("replay move %q: %w", san, err)
		}
	}
	if game.Outcome() != nchess.NoOutcome {
		return Verdict{}, ErrIllegalMove
	}

	pos := game.Position()
	if err := game.PushNotationMove(move, nchess.AlgebraicNotation{}, nil); err != nil {
		if err := game.PushNotationMove(move, nchess.UCINotation{}, nil); err != nil {
			return Verdict{}, ErrIllegalMove
		}
	}

	moves := game.Moves()
	last := moves[len(moves)-1]
	v := Verdict{
		SAN:  nchess.AlgebraicNotation{}.Encode(pos, last),
		FEN:  game.FEN(),
		Turn: colorFrom(game.Position().Turn()),
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		v.Outcome = WhiteWon
	case nchess.BlackWon:
		v.Outcome = BlackWon
	case nchess.Draw:
		v.Outcome = Drawn
	}
	return v, nil
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
