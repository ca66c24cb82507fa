package session

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/castlingclub/chess-duel-backend/internal/engine"
	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/rules"
)

type Msg interface{ isSessionMsg() }

// FromClient carries a fire-and-forget intent from the realtime transport.
type FromClient struct {
	Cmd engine.Command
}

func (FromClient) isSessionMsg() {}

// Do is FromClient with a reply, for request/response callers that need the
// command's outcome (the HTTP color-selection endpoint).
type Do struct {
	Cmd   engine.Command
	Reply chan DoResult
}

func (Do) isSessionMsg() {}

type DoResult struct {
	Events []engine.Event
	State  engine.State
	Err    error
}

type Join struct {
	ClientID string
	Outbox   chan Outbound // where this observer wants to receive events
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// Outbound is what observers receive: a full snapshot after any accepted
// mutation, or a bare termination notice after a resignation.
type Outbound interface{ isOutbound() }

type Snapshot struct {
	Version int
	State   engine.State
}

func (Snapshot) isOutbound() {}

type Terminated struct {
	Winner string
}

func (Terminated) isOutbound() {}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Session is the single writer for one game record. All intents for its key
// are serialized through the inbox, so a command's read-modify-write-publish
// cycle never interleaves with another.
type Session struct {
	inbox   chan Msg
	state   engine.State
	version int
	env     engine.Env
	clients map[string]chan Outbound
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, reg *identity.Registry, oracle rules.Oracle, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	// Only touched from the session goroutine.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	s := &Session{
		inbox: make(chan Msg, 64),
		state: engine.NewState(oracle.StartingFEN()),
		env: engine.Env{
			Registry: reg,
			Rules:    oracle,
			Coin: func() engine.Color {
				if rng.Intn(2) == 0 {
					return engine.ColorWhite
				}
				return engine.ColorBlack
			},
		},
		clients: make(map[string]chan Outbound),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

// Inbox exposes the mailbox so the transport layer and tests can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register observer + send current snapshot immediately.
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: s.version, State: s.state}

			case Leave:
				// Close so the transport's writer loop terminates; the
				// observer may already be gone if broadcast dropped it.
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case FromClient:
				_, _ = s.apply(msg.Cmd)

			case Do:
				events, err := s.apply(msg.Cmd)
				msg.Reply <- DoResult{Events: events, State: s.state, Err: err}

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(cmd engine.Command) ([]engine.Event, error) {
	events, newState, err := engine.Apply(s.state, cmd, s.env)
	if err != nil {
		// Rejected intents are silent: no state change, no broadcast.
		s.log.Debug("intent rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("identity", cmd.Identity),
			zap.Error(err))
		return nil, err
	}

	s.state = newState
	if engine.ContainsEvent(events, engine.EvtGameResigned) {
		// Resignation publishes a termination notice, not a snapshot.
		s.broadcast(Terminated{Winner: newState.Winner})
		return events, nil
	}

	s.version++
	s.broadcast(Snapshot{Version: s.version, State: s.state})
	return events, nil
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell observer no more events
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(out Outbound) {
	for id, ch := range s.clients {
		select {
		case ch <- out:
			// ok
		default:
			// Observer is slow/full - drop them. A dead observer must
			// never stall the next intent.
			close(ch)
			delete(s.clients, id)
			s.log.Warn("dropped slow observer", zap.String("client", id))
		}
	}
}
