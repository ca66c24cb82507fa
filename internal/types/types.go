package types

import "github.com/castlingclub/chess-duel-backend/internal/engine"

// Client -> Server
//
// select_player:
//   identity: string
//   preferred_color: "white" | "black" (optional)
//
// make_move:
//   identity: string
//   move: string (SAN, UCI accepted)
//
// request_new_game:
//   identity: string
//
// resign:
//   identity: string
type ClientMessage struct {
	Type           string `json:"type"`
	Identity       string `json:"identity,omitempty"`
	PreferredColor string `json:"preferred_color,omitempty"`
	Move           string `json:"move,omitempty"`
}

// Server -> Client
//
// game_update: full snapshot after any accepted mutation
// game_over:   winner only, after a resignation
// error:       transport-level malformation only; game-rule rejections
//              publish nothing
type ServerMessage struct {
	Type    string        `json:"type"` // "game_update" | "game_over" | "error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Winner  string        `json:"winner,omitempty"`
	Error   string        `json:"error,omitempty"`
}
