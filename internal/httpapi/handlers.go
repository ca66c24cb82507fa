package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/castlingclub/chess-duel-backend/internal/engine"
	"github.com/castlingclub/chess-duel-backend/internal/hub"
	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/session"
	"github.com/castlingclub/chess-duel-backend/internal/ws"
)

// GenerateToken mints the opaque token handed back on color selection.
// Nothing validates it yet; clients just echo it.
func GenerateToken() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	token := make([]byte, 16)
	for i := range token {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		token[i] = charset[num.Int64()]
	}
	return string(token), nil
}

type authRequest struct {
	Passcode string `json:"passcode"`
}

type authResponse struct {
	Success             bool     `json:"success"`
	AvailableIdentities []string `json:"available_identities"`
}

// Auth is the shared-secret gate. Whoever clears it may claim any identity
// in the roster; the coordinator does no further credential checks.
func Auth(passcode string, reg *identity.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Passcode != passcode {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authResponse{Success: false, AvailableIdentities: []string{}})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authResponse{Success: true, AvailableIdentities: reg.List()})
	}
}

type selectPlayerRequest struct {
	Identity       string `json:"identity"`
	PreferredColor string `json:"preferred_color,omitempty"`
	Game           string `json:"game,omitempty"`
}

type selectPlayerResponse struct {
	Success bool   `json:"success"`
	Color   string `json:"color,omitempty"`
	Token   string `json:"token,omitempty"`
}

// SelectPlayer routes a join intent through the session actor and answers
// with the color the assignment policy settled on. The broadcast to
// connected observers happens on the session side as usual.
func SelectPlayer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectPlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		key := req.Game
		if key == "" {
			key = ws.DefaultGameKey
		}

		var color engine.Color
		if req.PreferredColor != "" {
			switch engine.Color(req.PreferredColor) {
			case engine.ColorWhite, engine.ColorBlack:
				color = engine.Color(req.PreferredColor)
			default:
				http.Error(w, "bad color", http.StatusBadRequest)
				return
			}
		}

		sessReply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{Key: key, Reply: sessReply}
		sess := <-sessReply
		if sess == nil {
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}

		doReply := make(chan session.DoResult, 1)
		sess.Inbox() <- session.Do{
			Cmd:   engine.Command{Type: engine.CmdJoin, Identity: req.Identity, PreferredColor: color},
			Reply: doReply,
		}
		res := <-doReply

		w.Header().Set("Content-Type", "application/json")
		if res.Err != nil {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(selectPlayerResponse{Success: false})
			return
		}

		assigned := res.State.ColorOf(req.Identity)
		token, err := GenerateToken()
		if err != nil {
			http.Error(w, "failed to generate token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(selectPlayerResponse{
			Success: true,
			Color:   string(assigned),
			Token:   token,
		})
	}
}

func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{Status: "ok", Message: "Chess server is running"})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
