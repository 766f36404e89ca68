package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/auth"
	"github.com/gokatarajesh/quiz-practice/internal/config"
	"github.com/gokatarajesh/quiz-practice/internal/metrics"
)

// WSUpgrader handles WebSocket upgrades. Origins are enforced by the CORS
// middleware before the upgrade is reached.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Router mounts a component's routes on the shared mux.
type Router interface {
	Register(mux *http.ServeMux)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(mux *http.ServeMux)

func (f RouterFunc) Register(mux *http.ServeMux) { f(mux) }

// Dependencies are the shared clients the base routes and middleware use.
// Any of them may be nil.
type Dependencies struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	Tokens   auth.TokenValidator
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewHTTPServer wires base routes (health, ping, metrics) plus every router
// behind the request logging, metrics, CORS, and auth middleware.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies, routers ...Router) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, deps, routers...),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the full middleware-wrapped handler.
func NewHandler(cfg *config.App, logger zerolog.Logger, deps Dependencies, routers ...Router) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps.Postgres, deps.Redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	for _, r := range routers {
		r.Register(mux)
	}

	var h http.Handler = mux
	h = auth.Middleware(deps.Tokens, logger)(h)
	h = CORS(cfg.CORS)(h)
	h = RequestLogger(logger, deps.Metrics)(h)
	return h
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
	}
	if redis != nil {
		if err := redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
