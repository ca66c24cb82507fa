package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/castlingclub/chess-duel-backend/internal/hub"
	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, passcode string, reg *identity.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/", Root)
	r.Get("/healthz", Healthz)
	r.Post("/api/auth", Auth(passcode, reg))
	r.Post("/api/player", SelectPlayer(h))
	r.Get("/ws", ws.Handler(h, log))
	return r
}
