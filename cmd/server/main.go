package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/castlingclub/chess-duel-backend/internal/config"
	"github.com/castlingclub/chess-duel-backend/internal/httpapi"
	"github.com/castlingclub/chess-duel-backend/internal/hub"
	"github.com/castlingclub/chess-duel-backend/internal/identity"
	"github.com/castlingclub/chess-duel-backend/internal/rules"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := identity.NewRegistry(cfg.Identities)
	h := hub.NewHub(ctx, reg, rules.ChessOracle{}, log)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, cfg.Passcode, reg, log)

	ln, port, err := listenWithRetry(cfg.Port, cfg.MaxPortAttempts, log)
	if err != nil {
		log.Fatal("failed to bind", zap.Error(err))
	}

	srv := &http.Server{Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.Int("port", port))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server closed")
}

// listenWithRetry walks forward from port until a bind succeeds, up to
// attempts ports. Lets a second instance come up next to a lingering one.
func listenWithRetry(port, attempts int, log *zap.Logger) (net.Listener, int, error) {
	for i := 0; i < attempts; i++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port+i))
		if err == nil {
			return ln, port + i, nil
		}
		log.Warn("port unavailable, trying next", zap.Int("port", port+i), zap.Error(err))
	}
	return nil, 0, fmt.Errorf("no free port in range %d-%d", port, port+attempts-1)
}
