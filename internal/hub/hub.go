package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/rules"
	"github.com/castlingclub/chess-duel-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

// EnsureSession creates the record lazily on first reference.
type EnsureSession struct {
	Key   string
	Reply chan *session.Session
}

// GetSession never creates: a move or resign against an unknown key must
// not materialize a record.
type GetSession struct {
	Key   string
	Reply chan *session.Session
}

type RemoveSession struct {
	Key string
}

type ShutdownHub struct{}

func (EnsureSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

// Hub owns the key -> session map. Sessions live for the rest of the
// process once created; RemoveSession exists for tests and future eviction.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	registry *identity.Registry
	oracle   rules.Oracle
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, reg *identity.Registry, oracle rules.Oracle, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		registry: reg,
		oracle:   oracle,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureSession:
				if s := h.sessions[msg.Key]; s != nil {
					msg.Reply <- s
					break
				}
				s := session.New(h.ctx, h.registry, h.oracle, h.log.With(zap.String("game", msg.Key)))
				h.sessions[msg.Key] = s
				h.log.Info("session created", zap.String("game", msg.Key))
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.Key] // May be nil

			case RemoveSession:
				delete(h.sessions, msg.Key)

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Inbox() <- session.Shutdown{}
				}
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}
