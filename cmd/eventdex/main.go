package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	catalogNeo4j "github.com/kailas-cloud/eventdex/internal/catalog/neo4j"
	"github.com/kailas-cloud/eventdex/internal/config"
	logpkg "github.com/kailas-cloud/eventdex/internal/logger"
	"github.com/kailas-cloud/eventdex/internal/metrics"
	"github.com/kailas-cloud/eventdex/internal/session"
	chiTransport "github.com/kailas-cloud/eventdex/internal/transport/chi"
	"github.com/kailas-cloud/eventdex/internal/transport/openai"
	"github.com/kailas-cloud/eventdex/internal/usecase/aggregate"
	"github.com/kailas-cloud/eventdex/internal/usecase/answer"
	"github.com/kailas-cloud/eventdex/internal/usecase/assistant"
	"github.com/kailas-cloud/eventdex/internal/usecase/filters"
	"github.com/kailas-cloud/eventdex/internal/usecase/intent"
	"github.com/kailas-cloud/eventdex/internal/usecase/rerank"
	"github.com/kailas-cloud/eventdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/eventdex/internal/version"
)

func main() {
	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting eventdex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("mode", mode),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterModelMetrics()

	ctx := context.Background()

	store, err := catalogNeo4j.NewStore(ctx, &catalogNeo4j.Config{
		URI:            cfg.Catalog.URI,
		User:           cfg.Catalog.User,
		Password:       cfg.Catalog.Password,
		Database:       cfg.Catalog.Database,
		VectorIndex:    cfg.Catalog.VectorIndex,
		VectorProperty: cfg.Catalog.VectorProperty,
		QueryTimeout:   time.Duration(cfg.Catalog.QueryTimeoutSec) * time.Second,
		MaxPoolSize:    cfg.Catalog.MaxPoolSize,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to connect to catalog", zap.Error(err))
	}
	defer func() { _ = store.Close(ctx) }()
	logger.Info("Connected to catalog", zap.String("uri", cfg.Catalog.URI))

	// Best effort: retrieval falls back to scanning if the index is missing.
	if err := store.EnsureVectorIndex(ctx, cfg.Catalog.EmbeddingDimensions); err != nil {
		logger.Warn("Could not ensure vector index", zap.Error(err))
	}

	fast := buildBackend(cfg, cfg.Models.Fast, "fast", logger)
	reasoning := buildBackend(cfg, cfg.Models.Reasoning, "reasoning", logger)

	sessions := buildSessionStore(cfg, logger)

	svc := assistant.New(
		intent.New(fast, logger),
		filters.New(reasoning, time.Now, logger),
		retrieval.New(store, fast, retrieval.Options{
			TopK:            cfg.Retrieval.TopK,
			SimilarityFloor: cfg.Retrieval.SimilarityFloor,
			ScanLimit:       cfg.Retrieval.ScanLimit,
		}, logger),
		rerank.New(store, reasoning, rerank.Options{
			Floor:              cfg.Retrieval.RerankFloor,
			Rescue:             cfg.Retrieval.RerankRescue,
			MaxConcurrentFetch: cfg.Catalog.MaxConcurrentFetch,
		}, logger),
		aggregate.New(cfg.Retrieval.MaxResults),
		answer.New(reasoning, answer.Options{
			ContextResults: cfg.Retrieval.ContextResults,
			HistoryWindow:  cfg.Retrieval.HistoryWindow,
			Temperature:    0.7,
		}, logger),
		store,
		assistant.Options{CollectionLimit: cfg.Retrieval.CollectionLimit},
		logger,
	)

	switch mode {
	case "serve":
		serve(cfg, svc, sessions, store, logger)
	case "ask":
		askLoop(ctx, svc, cfg.Session.Capacity, strings.Join(os.Args[2:], " "))
	default:
		logger.Fatal("Unknown mode, expected serve or ask", zap.String("mode", mode))
	}
}

// buildBackend constructs one model backend role from the named credentials.
func buildBackend(cfg config.Config, role config.RoleConfig, name string, logger *zap.Logger) *openai.Client {
	backend := cfg.Models.Backends[role.Backend]
	return openai.NewClient(&openai.Config{
		APIKey:         backend.APIKey,
		BaseURL:        backend.BaseURL,
		Model:          role.Model,
		EmbeddingModel: role.EmbeddingModel,
		Backend:        name,
		Timeout:        time.Duration(cfg.Models.RequestTimeoutSec) * time.Second,
		Logger:         logger,
	})
}

func buildSessionStore(cfg config.Config, logger *zap.Logger) session.Store {
	switch cfg.Session.Driver {
	case "redis":
		store, err := session.NewRedisStore(session.RedisConfig{
			Addrs:    cfg.Session.Addrs,
			Password: cfg.Session.Password,
			Capacity: cfg.Session.Capacity,
			TTL:      time.Duration(cfg.Session.TTLHours) * time.Hour,
		})
		if err != nil {
			logger.Fatal("Failed to create session store", zap.Error(err))
		}
		return store
	default:
		return session.NewMemoryStore(cfg.Session.Capacity)
	}
}

func serve(cfg config.Config, svc *assistant.Service, sessions session.Store, store *catalogNeo4j.Store, logger *zap.Logger) {
	server := chiTransport.NewServer(svc, sessions, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

// askLoop answers a one-shot query, or runs an interactive terminal
// conversation against one session when no query is given.
func askLoop(ctx context.Context, svc *assistant.Service, capacity int, query string) {
	sess := session.NewMemory(capacity)

	if query != "" {
		printAnswer(ctx, svc, sess, query)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("eventdex — ask about events (empty line to quit)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			break
		}
		printAnswer(ctx, svc, sess, line)
	}
}

func printAnswer(ctx context.Context, svc *assistant.Service, sess session.Session, query string) {
	resp, err := svc.AnswerQuery(ctx, query, sess)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}

	fmt.Println(resp.Answer)
	for i, g := range resp.Results {
		fmt.Printf("  %d. %s — %s, %s, %.0f TL\n", i+1, g.Details.Title, g.Details.Venue, firstDate(g.Dates), g.Details.Price)
	}
}

func firstDate(dates []string) string {
	if len(dates) == 0 {
		return "date unknown"
	}
	return dates[0]
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogMiddleware emits a canonical log line per request and propagates X-Request-ID.
func requestLogMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
