package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/castlingclub/chess-duel-backend/internal/engine"
	"github.com/castlingclub/chess-duel-backend/internal/hub"
	"github.com/castlingclub/chess-duel-backend/internal/session"
	"github.com/castlingclub/chess-duel-backend/internal/types"
)

// DefaultGameKey is the session every connection without an explicit
// ?game= query lands on. A two-player deployment only ever uses this one.
const DefaultGameKey = "default-game"

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("game")
		if key == "" {
			key = DefaultGameKey
		}

		// Connecting is the first reference to the key; the record is
		// created lazily here.
		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{Key: key, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Outbound, 8)
		clientID := randID(6)
		log.Info("observer connected", zap.String("game", key), zap.String("client", clientID))

		sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { sess.Inbox() <- session.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for ob := range out {
				payload, _ := json.Marshal(toServerMessage(ob))
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (session.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"bad json"}`))
				continue
			}

			cmd, ok := toCommand(cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"unknown type"}`))
				continue
			}

			sess.Inbox() <- session.FromClient{Cmd: cmd}
		}
	}
}

func toServerMessage(ob session.Outbound) types.ServerMessage {
	switch o := ob.(type) {
	case session.Snapshot:
		return types.ServerMessage{Type: "game_update", Version: o.Version, State: &o.State}
	case session.Terminated:
		return types.ServerMessage{Type: "game_over", Winner: o.Winner}
	default:
		return types.ServerMessage{Type: "error", Error: "unknown event"}
	}
}

func toCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "select_player":
		color, ok := parseColor(m.PreferredColor)
		if !ok {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdJoin, Identity: m.Identity, PreferredColor: color}, true
	case "make_move":
		return engine.Command{Type: engine.CmdMove, Identity: m.Identity, Move: m.Move}, true
	case "request_new_game":
		return engine.Command{Type: engine.CmdNewGame, Identity: m.Identity}, true
	case "resign":
		return engine.Command{Type: engine.CmdResign, Identity: m.Identity}, true
	default:
		return engine.Command{}, false
	}
}

func parseColor(color string) (engine.Color, bool) {
	switch color {
	case "":
		return "", true // no preference
	case "white":
		return engine.ColorWhite, true
	case "black":
		return engine.ColorBlack, true
	default:
		return "", false
	}
}

func randID(length int) string {
	// Not sure how complex the clientID should be. Could make it a uuid but that may be too complicated for our purposes.
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
