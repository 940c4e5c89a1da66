package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/auth"
	"github.com/whisper2/server/internal/config"
	"github.com/whisper2/server/internal/health"
	"github.com/whisper2/server/internal/httpapi"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/metrics"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/presence"
	"github.com/whisper2/server/internal/ratelimit"
	"github.com/whisper2/server/internal/router"
	"github.com/whisper2/server/internal/store"
)

// GracefulDrainTimeout bounds how long Shutdown waits for connections to
// close on their own, after every live connection has been sent
// force_logout, before the listeners are torn down regardless.
const GracefulDrainTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server owns every long-lived listener the process runs: the websocket
// endpoint, the HTTP API, the metrics endpoint, and the health endpoint.
type Server struct {
	cfg        *config.Config
	conns      *mux.Registry
	dispatcher *Dispatcher
	presence   *presence.Tracker
	api        *httpapi.API
	health     *health.Checker
	log        logger.Logger

	wsServer   *http.Server
	httpServer *http.Server
	drain      chan struct{}
	drainOnce  sync.Once
}

// New builds a Server from already-constructed stores and adapters. It
// owns wiring the protocol components together; callers own connecting
// to postgres/redis and choosing which adapters.* implementations to use.
func New(cfg *config.Config, durable store.Durable, volatile store.Volatile, pushAdapter adapters.Pusher, presigner adapters.Presigner, turn adapters.TURNMinter, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	conns := mux.NewRegistry()
	authEngine := auth.New(durable, volatile, conns, nil, log)
	r := router.New(durable, volatile, conns, pushAdapter, nil, log)
	pres := presence.New(volatile, conns, nil, log)
	limiter := ratelimit.New(volatile)
	dispatcher := NewDispatcher(authEngine, r, pres, limiter, turn, conns, log)
	api := httpapi.New(durable, authEngine, presigner, turn, log)

	checker := health.NewChecker(5*time.Second, log)
	health.RegisterStoreChecks(checker, durable, volatile)

	return &Server{
		cfg: cfg, conns: conns, dispatcher: dispatcher, presence: pres,
		api: api, health: checker, log: log, drain: make(chan struct{}),
	}
}

// handleAdminDrain implements the drain endpoint cmd/whisperctl's `drain`
// subcommand calls: it accepts no body, triggers the same shutdown path
// as an OS signal would, and returns immediately rather than waiting for
// the drain to finish.
func (s *Server) handleAdminDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.drainOnce.Do(func() { close(s.drain) })
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if s.log != nil {
				s.log.Warn("websocket upgrade failed", logger.Error(err))
			}
			return
		}
		metrics.ConnectionsActive.Inc()
		defer metrics.ConnectionsActive.Dec()

		mux.Accept(r.Context(), ws, s.conns, s.dispatcher, s.log, func(c *mux.Conn) {
			if whisperID := c.WhisperID(); whisperID != "" {
				if err := s.presence.Offline(context.Background(), whisperID); err != nil && s.log != nil {
					s.log.Warn("mark presence offline on disconnect", logger.Error(err), logger.String("whisperId", whisperID))
				}
			}
		})
	}
}

// Run starts the websocket and HTTP listeners and blocks until ctx is
// cancelled, then runs Shutdown.
func (s *Server) Run(ctx context.Context) error {
	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", s.wsHandler())
	s.wsServer = &http.Server{Addr: s.cfg.Listen.WebsocketAddr, Handler: wsMux}

	httpMux := http.NewServeMux()
	httpMux.Handle("/", s.api.Handler())
	if s.cfg.Health.Enabled {
		httpMux.HandleFunc(s.cfg.Health.Path, s.health.Handler())
	}
	if s.cfg.Metrics.Enabled {
		httpMux.Handle("/metrics", metrics.Handler())
	}
	httpMux.HandleFunc("/admin/drain", s.handleAdminDrain)
	s.httpServer = &http.Server{Addr: s.cfg.Listen.HTTPAddr, Handler: httpMux}

	errCh := make(chan error, 2)
	go func() { errCh <- s.wsServer.ListenAndServe() }()
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case <-s.drain:
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown force-logs-out every live connection, gives them
// GracefulDrainTimeout to close on their own, then tears down both
// listeners regardless of whether every connection finished draining.
func (s *Server) Shutdown(ctx context.Context) error {
	s.conns.Range(func(c *mux.Conn) {
		c.SendForceLogout("server_draining")
	})

	drainCtx, cancel := context.WithTimeout(ctx, GracefulDrainTimeout)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for s.conns.Count() > 0 {
		select {
		case <-drainCtx.Done():
			goto drained
		case <-ticker.C:
		}
	}
drained:
	if s.wsServer != nil {
		_ = s.wsServer.Shutdown(ctx)
	}
	if s.httpServer != nil {
		_ = s.httpServer.Shutdown(ctx)
	}
	return nil
}
