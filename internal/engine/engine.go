package engine

import (
	"errors"

	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/rules"
)

var ErrUnknownIdentity = errors.New("unknown identity")
var ErrColorTaken = errors.New("color already taken")
var ErrWrongTurn = errors.New("invalid turn")
var ErrIllegalMove = errors.New("illegal move")
var ErrGameAlreadyCompleted = errors.New("game already completed")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Color string

const (
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

func (c Color) Opposite() Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCheckmate  Status = "checkmate"
	StatusDraw       Status = "draw"
	StatusResigned   Status = "resigned"
)

// State is the authoritative record of one game session. It is a value:
// Apply never mutates its input, it returns the successor state.
type State struct {
	Board       string   `json:"board"` // FEN understood by the rules oracle
	Turn        Color    `json:"turn"`
	WhitePlayer string   `json:"white_player,omitempty"`
	BlackPlayer string   `json:"black_player,omitempty"`
	MoveLog     []string `json:"move_log"`
	Status      Status   `json:"status"`
	Winner      string   `json:"winner,omitempty"` // identity; set for checkmate/resigned only
}

func NewState(startFEN string) State {
	return State{Board: startFEN, Turn: ColorWhite, Status: StatusInProgress}
}

func (s State) GameOver() bool { return s.Status != StatusInProgress }

// ColorOf returns the color held by id, or "" if id has no seat yet.
func (s State) ColorOf(id string) Color {
	switch {
	case id != "" && s.WhitePlayer == id:
		return ColorWhite
	case id != "" && s.BlackPlayer == id:
		return ColorBlack
	default:
		return ""
	}
}

func (s *State) setColor(id string, c Color) {
	if id == "" {
		return
	}
	if c == ColorWhite {
		s.WhitePlayer = id
	} else {
		s.BlackPlayer = id
	}
}

type CommandType string

const (
	CmdJoin    CommandType = "Join"
	CmdMove    CommandType = "Move"
	CmdNewGame CommandType = "NewGame"
	CmdResign  CommandType = "Resign"
)

type Command struct {
	Type           CommandType
	Identity       string
	PreferredColor Color  // Join only; "" means no preference
	Move           string // Move only; notation is opaque to the coordinator
}

type EventType string

const (
	EvtColorAssigned EventType = "ColorAssigned"
	EvtMovePlayed    EventType = "MovePlayed"
	EvtGameCompleted EventType = "GameCompleted"
	EvtGameReset     EventType = "GameReset"
	EvtGameResigned  EventType = "GameResigned"
)

type Event struct {
	Type     EventType
	Identity string
	Color    Color
	Move     string
	Winner   string
}

// Env carries the coordinator's collaborators. The coin flip is injected so
// the one non-deterministic step (unpreferenced color assignment) is
// controllable in tests.
type Env struct {
	Registry *identity.Registry
	Rules    rules.Oracle
	Coin     func() Color
}

// Apply validates cmd against s and returns the events it produced plus the
// successor state. On error the returned state is s unchanged; the session
// layer publishes nothing for a rejected command.
func Apply(s State, cmd Command, env Env) ([]Event, State, error) {
	if !env.Registry.IsKnown(cmd.Identity) {
		return nil, s, ErrUnknownIdentity
	}

	switch cmd.Type {
	case CmdJoin:
		return applyJoin(s, cmd, env)
	case CmdMove:
		return applyMove(s, cmd, env)
	case CmdNewGame:
		return applyNewGame(s, env)
	case CmdResign:
		return applyResign(s, cmd, env)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// applyJoin seats the claimant. Seating one identity always pins the other:
// the roster is a pair, so a single preference (or coin flip) fully
// determines both colors. Once assigned, colors never flip.
func applyJoin(s State, cmd Command, env Env) ([]Event, State, error) {
	if held := s.ColorOf(cmd.Identity); held != "" {
		if cmd.PreferredColor != "" && cmd.PreferredColor != held {
			return nil, s, ErrColorTaken
		}
		// Idempotent re-join; re-announce so a reconnecting player
		// still gets a snapshot.
		return []Event{{Type: EvtColorAssigned, Identity: cmd.Identity, Color: held}}, s, nil
	}

	other := env.Registry.Other(cmd.Identity)
	want := cmd.PreferredColor
	if otherHeld := s.ColorOf(other); otherHeld != "" {
		if want != "" && want == otherHeld {
			return nil, s, ErrColorTaken
		}
		want = otherHeld.Opposite()
	}
	if want == "" {
		want = env.Coin()
	}

	newState := s
	newState.setColor(cmd.Identity, want)
	newState.setColor(other, want.Opposite())

	events := []Event{{Type: EvtColorAssigned, Identity: cmd.Identity, Color: want}}
	if other != "" {
		events = append(events, Event{Type: EvtColorAssigned, Identity: other, Color: want.Opposite()})
	}
	return events, newState, nil
}

func applyMove(s State, cmd Command, env Env) ([]Event, State, error) {
	if s.GameOver() {
		return nil, s, ErrGameAlreadyCompleted
	}
	if s.ColorOf(cmd.Identity) != s.Turn {
		return nil, s, ErrWrongTurn
	}

	v, err := env.Rules.Apply(s.MoveLog, cmd.Move)
	if err != nil {
		return nil, s, ErrIllegalMove
	}

	newState := s
	newState.Board = v.FEN
	newState.Turn = Color(v.Turn)
	newState.MoveLog = append(append([]string(nil), s.MoveLog...), v.SAN)

	events := []Event{{Type: EvtMovePlayed, Identity: cmd.Identity, Move: v.SAN}}
	switch v.Outcome {
	case rules.WhiteWon:
		newState.Status = StatusCheckmate
		newState.Winner = newState.WhitePlayer
		events = append(events, Event{Type: EvtGameCompleted, Winner: newState.Winner})
	case rules.BlackWon:
		newState.Status = StatusCheckmate
		newState.Winner = newState.BlackPlayer
		events = append(events, Event{Type: EvtGameCompleted, Winner: newState.Winner})
	case rules.Drawn:
		newState.Status = StatusDraw
		events = append(events, Event{Type: EvtGameCompleted})
	}
	return events, newState, nil
}

// applyNewGame resets the board but keeps the seats. Any known identity may
// trigger it, including before the first game has ended.
func applyNewGame(s State, env Env) ([]Event, State, error) {
	newState := s
	newState.Board = env.Rules.StartingFEN()
	newState.Turn = ColorWhite
	newState.MoveLog = nil
	newState.Status = StatusInProgress
	newState.Winner = ""
	return []Event{{Type: EvtGameReset}}, newState, nil
}

// applyResign awards the game to the other identity in the roster, which is
// the opponent whether or not they ever took a seat.
func applyResign(s State, cmd Command, env Env) ([]Event, State, error) {
	if s.GameOver() {
		return nil, s, ErrGameAlreadyCompleted
	}
	winner := env.Registry.Other(cmd.Identity)
	newState := s
	newState.Status = StatusResigned
	newState.Winner = winner
	return []Event{{Type: EvtGameResigned, Winner: winner}}, newState, nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
