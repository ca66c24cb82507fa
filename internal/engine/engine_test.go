package engine

import (
	"errors"
	"testing"

	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/rules"
)

type fakeOracle struct {
	verdict rules.Verdict
	err     error
}

func (f fakeOracle) StartingFEN() string { return "start-fen" }

func (f fakeOracle) Apply(history []string, move string) (rules.Verdict, error) {
	return f.verdict, f.err
}

func testEnv(oracle rules.Oracle, coin func() Color) Env {
	if coin == nil {
		coin = func() Color { return ColorWhite }
	}
	return Env{
		Registry: identity.NewRegistry([]string{"RJ", "OJ"}),
		Rules:    oracle,
		Coin:     coin,
	}
}

func TestJoinWithPreferenceSeatsBothPlayers(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	s := NewState("start-fen")

	events, next, err := Apply(s, Command{Type: CmdJoin, Identity: "RJ", PreferredColor: ColorWhite}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.WhitePlayer != "RJ" || next.BlackPlayer != "OJ" {
		t.Fatalf("want RJ white / OJ black, got white=%q black=%q", next.WhitePlayer, next.BlackPlayer)
	}
	if len(events) != 2 || events[0].Type != EvtColorAssigned || events[1].Type != EvtColorAssigned {
		t.Fatalf("want two ColorAssigned events, got %+v", events)
	}
}

func TestJoinOppositeWhenOtherAlreadySeated(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	s := NewState("start-fen")
	s.WhitePlayer = "OJ" // OJ seated, RJ not yet

	_, next, err := Apply(s, Command{Type: CmdJoin, Identity: "RJ"}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.ColorOf("RJ") != ColorBlack {
		t.Fatalf("want RJ assigned black, got %q", next.ColorOf("RJ"))
	}
}

func TestJoinCoinFlipWhenNoPreference(t *testing.T) {
	for _, want := range []Color{ColorWhite, ColorBlack} {
		coin := func() Color { return want }
		env := testEnv(fakeOracle{}, coin)

		_, next, err := Apply(NewState("start-fen"), Command{Type: CmdJoin, Identity: "OJ"}, env)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if next.ColorOf("OJ") != want {
			t.Fatalf("coin=%v: want OJ %v, got %v", want, want, next.ColorOf("OJ"))
		}
		if next.ColorOf("RJ") != want.Opposite() {
			t.Fatalf("coin=%v: want RJ %v, got %v", want, want.Opposite(), next.ColorOf("RJ"))
		}
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	_, seated, err := Apply(NewState("start-fen"), Command{Type: CmdJoin, Identity: "RJ", PreferredColor: ColorWhite}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	events, next, err := Apply(seated, Command{Type: CmdJoin, Identity: "RJ", PreferredColor: ColorWhite}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.WhitePlayer != seated.WhitePlayer || next.BlackPlayer != seated.BlackPlayer {
		t.Fatalf("re-join changed seats: %+v", next)
	}
	if !ContainsEvent(events, EvtColorAssigned) {
		t.Fatalf("re-join should re-announce the assignment, got %+v", events)
	}
}

func TestJoinRejectsConflictingClaims(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	_, seated, _ := Apply(NewState("start-fen"), Command{Type: CmdJoin, Identity: "OJ", PreferredColor: ColorWhite}, env)

	cases := []struct {
		name string
		cmd  Command
	}{
		{name: "other identity claims the held color", cmd: Command{Type: CmdJoin, Identity: "RJ", PreferredColor: ColorWhite}},
		{name: "seated identity asks for a swap", cmd: Command{Type: CmdJoin, Identity: "OJ", PreferredColor: ColorBlack}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(seated, tc.cmd, env)
			if !errors.Is(err, ErrColorTaken) {
				t.Fatalf("want ErrColorTaken, got %v", err)
			}
			if len(events) != 0 {
				t.Fatalf("rejected join produced events: %+v", events)
			}
			if next.WhitePlayer != seated.WhitePlayer || next.BlackPlayer != seated.BlackPlayer {
				t.Fatalf("rejected join changed seats: %+v", next)
			}
		})
	}
}

func TestUnknownIdentityIsRejected(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	for _, cmdType := range []CommandType{CmdJoin, CmdMove, CmdNewGame, CmdResign} {
		_, _, err := Apply(NewState("start-fen"), Command{Type: cmdType, Identity: "intruder"}, env)
		if !errors.Is(err, ErrUnknownIdentity) {
			t.Fatalf("%v: want ErrUnknownIdentity, got %v", cmdType, err)
		}
	}
}

func seatedState(t *testing.T, env Env) State {
	t.Helper()
	_, s, err := Apply(NewState("start-fen"), Command{Type: CmdJoin, Identity: "RJ", PreferredColor: ColorWhite}, env)
	if err != nil {
		t.Fatalf("setup join failed: %v", err)
	}
	return s
}

func TestMoveOutOfTurnIsRejected(t *testing.T) {
	env := testEnv(fakeOracle{verdict: rules.Verdict{SAN: "e4"}}, nil)
	s := seatedState(t, env) // RJ white, white to move

	events, next, err := Apply(s, Command{Type: CmdMove, Identity: "OJ", Move: "e5"}, env)
	if !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("want ErrWrongTurn, got %v", err)
	}
	if len(events) != 0 || len(next.MoveLog) != 0 || next.Board != s.Board {
		t.Fatalf("rejected move changed state: %+v", next)
	}
}

func TestMoveBeforeSeatingIsRejected(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	_, _, err := Apply(NewState("start-fen"), Command{Type: CmdMove, Identity: "RJ", Move: "e4"}, env)
	if !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("want ErrWrongTurn, got %v", err)
	}
}

func TestIllegalMoveIsRejected(t *testing.T) {
	env := testEnv(fakeOracle{err: rules.ErrIllegalMove}, nil)
	s := seatedState(t, env)

	events, next, err := Apply(s, Command{Type: CmdMove, Identity: "RJ", Move: "Ke5"}, env)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("want ErrIllegalMove, got %v", err)
	}
	if len(events) != 0 || len(next.MoveLog) != 0 {
		t.Fatalf("rejected move changed state: %+v", next)
	}
}

func TestLegalMoveAdvancesTurnAndLog(t *testing.T) {
	env := testEnv(fakeOracle{verdict: rules.Verdict{SAN: "e4", FEN: "fen-after-e4", Turn: rules.Black}}, nil)
	s := seatedState(t, env)

	events, next, err := Apply(s, Command{Type: CmdMove, Identity: "RJ", Move: "e4"}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Board != "fen-after-e4" || next.Turn != ColorBlack {
		t.Fatalf("want board/turn updated, got board=%q turn=%q", next.Board, next.Turn)
	}
	if len(next.MoveLog) != 1 || next.MoveLog[0] != "e4" {
		t.Fatalf("want move log [e4], got %+v", next.MoveLog)
	}
	if !ContainsEvent(events, EvtMovePlayed) || ContainsEvent(events, EvtGameCompleted) {
		t.Fatalf("want MovePlayed only, got %+v", events)
	}
	if len(s.MoveLog) != 0 {
		t.Fatalf("input state was mutated: %+v", s.MoveLog)
	}
}

func TestCheckmateAttributesWinToMover(t *testing.T) {
	env := testEnv(fakeOracle{verdict: rules.Verdict{SAN: "Qxf7#", Turn: rules.Black, Outcome: rules.WhiteWon}}, nil)
	s := seatedState(t, env) // RJ is white

	events, next, err := Apply(s, Command{Type: CmdMove, Identity: "RJ", Move: "Qxf7#"}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusCheckmate || next.Winner != "RJ" {
		t.Fatalf("want checkmate won by RJ, got status=%q winner=%q", next.Status, next.Winner)
	}
	if !ContainsEvent(events, EvtGameCompleted) {
		t.Fatalf("want GameCompleted event, got %+v", events)
	}
}

func TestDrawHasNoWinner(t *testing.T) {
	env := testEnv(fakeOracle{verdict: rules.Verdict{SAN: "Kd4", Turn: rules.Black, Outcome: rules.Drawn}}, nil)
	s := seatedState(t, env)

	_, next, err := Apply(s, Command{Type: CmdMove, Identity: "RJ", Move: "Kd4"}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusDraw || next.Winner != "" {
		t.Fatalf("want draw with no winner, got status=%q winner=%q", next.Status, next.Winner)
	}
}

func TestMoveAfterGameOverIsRejected(t *testing.T) {
	env := testEnv(fakeOracle{verdict: rules.Verdict{SAN: "e4"}}, nil)
	s := seatedState(t, env)
	s.Status = StatusResigned

	_, _, err := Apply(s, Command{Type: CmdMove, Identity: "RJ", Move: "e4"}, env)
	if !errors.Is(err, ErrGameAlreadyCompleted) {
		t.Fatalf("want ErrGameAlreadyCompleted, got %v", err)
	}
}

func TestNewGameResetsBoardButKeepsSeats(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	s := seatedState(t, env)
	s.Board = "mid-game-fen"
	s.Turn = ColorBlack
	s.MoveLog = []string{"e4", "e5"}
	s.Status = StatusCheckmate
	s.Winner = "RJ"

	events, next, err := Apply(s, Command{Type: CmdNewGame, Identity: "OJ"}, env)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Board != "start-fen" || next.Turn != ColorWhite {
		t.Fatalf("want fresh board with white to move, got board=%q turn=%q", next.Board, next.Turn)
	}
	if len(next.MoveLog) != 0 || next.Status != StatusInProgress || next.Winner != "" {
		t.Fatalf("want cleared log and terminal flag, got %+v", next)
	}
	if next.WhitePlayer != "RJ" || next.BlackPlayer != "OJ" {
		t.Fatalf("new game should keep seats, got white=%q black=%q", next.WhitePlayer, next.BlackPlayer)
	}
	if !ContainsEvent(events, EvtGameReset) {
		t.Fatalf("want GameReset event, got %+v", events)
	}
}

func TestResignAwardsTheOpponent(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)

	cases := []struct {
		name       string
		setup      State
		resigner   string
		wantWinner string
	}{
		{name: "seated resigner", setup: seatedState(t, env), resigner: "RJ", wantWinner: "OJ"},
		{name: "only one player ever joined", setup: NewState("start-fen"), resigner: "OJ", wantWinner: "RJ"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, Command{Type: CmdResign, Identity: tc.resigner}, env)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.Status != StatusResigned || next.Winner != tc.wantWinner {
				t.Fatalf("want resigned with winner %q, got status=%q winner=%q", tc.wantWinner, next.Status, next.Winner)
			}
			if !ContainsEvent(events, EvtGameResigned) {
				t.Fatalf("want GameResigned event, got %+v", events)
			}
		})
	}
}

func TestResignAfterGameOverIsRejected(t *testing.T) {
	env := testEnv(fakeOracle{}, nil)
	s := seatedState(t, env)
	s.Status = StatusDraw

	_, _, err := Apply(s, Command{Type: CmdResign, Identity: "RJ"}, env)
	if !errors.Is(err, ErrGameAlreadyCompleted) {
		t.Fatalf("want ErrGameAlreadyCompleted, got %v", err)
	}
}
