package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/reparte/backend/internal/auth"
	"github.com/reparte/backend/internal/config"
	"github.com/reparte/backend/internal/ledger"
	"github.com/reparte/backend/internal/middleware"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/service"
	"github.com/reparte/backend/internal/storage"
	"github.com/reparte/backend/internal/storage/sqlite"
	"github.com/reparte/backend/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logging.SetupWithLevel(logLevel(cfg.LogLevel))
	logger := slog.Default()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := seedDefaultClient(context.Background(), store, logger); err != nil {
		logger.Error("Failed to seed OAuth client", "error", err)
		os.Exit(1)
	}

	queue := ledger.NewQueue(ledger.NewAggregator(store), logger, cfg.QueueBuffer)
	issuer := auth.NewIssuer(store)
	envelopes := auth.NewEnvelopeManager(cfg.EnvelopeSecret)

	router := newRouter(store, issuer, envelopes, queue, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
	}

	// Let the in-flight recompute finish before the store closes.
	queue.Close()
	logger.Info("Server stopped")
}

func newRouter(store storage.Store, issuer *auth.Issuer, envelopes *auth.EnvelopeManager, queue *ledger.Queue, logger *slog.Logger) chi.Router {
	oauthSvc := service.NewOAuthService(store, issuer, envelopes, logger)
	groupSvc := service.NewGroupService(store, logger)
	memberSvc := service.NewMemberService(store, logger)
	expenseSvc := service.NewTransactionService(models.KindExpense, store, queue, logger)
	refundSvc := service.NewTransactionService(models.KindRefund, store, queue, logger)
	balanceSvc := service.NewBalanceService(store, logger)

	requireAuth := middleware.RequireAuth(envelopes, issuer)
	requireMember := middleware.RequireMember(store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Group-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/oauth/token", oauthSvc.Token)
	r.Post("/oauth/register", oauthSvc.Register)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/oauth/logout", oauthSvc.Logout)

		r.Post("/groups", groupSvc.Create)
		r.Get("/groups", groupSvc.List)
		r.Post("/groups/join", groupSvc.Join)

		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Use(requireMember)

			r.Get("/", groupSvc.Get)
			r.Put("/", groupSvc.Update)
			r.Delete("/", groupSvc.Delete)

			r.Get("/members", memberSvc.List)
			r.Post("/members", memberSvc.Add)
			r.Get("/members/{memberID}", memberSvc.Get)
			r.Put("/members/{memberID}", memberSvc.Rename)
			r.Delete("/members/{memberID}", memberSvc.Delete)

			mountTransactions(r, "/expenses", expenseSvc)
			mountTransactions(r, "/refunds", refundSvc)

			r.Get("/balances", balanceSvc.Get)
		})
	})

	return r
}

func mountTransactions(r chi.Router, prefix string, svc *service.TransactionService) {
	r.Route(prefix, func(r chi.Router) {
		r.Post("/", svc.Create)
		r.Get("/", svc.List)
		r.Get("/{transactionID}", svc.Get)
		r.Put("/{transactionID}", svc.Update)
		r.Delete("/{transactionID}", svc.Delete)
	})
}

// seedDefaultClient creates a first OAuth client on an empty database so
// the API is usable out of the box. The generated secret is logged once;
// it is not recoverable later.
func seedDefaultClient(ctx context.Context, store storage.Store, logger *slog.Logger) error {
	count, err := store.CountClients(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	client := &models.Client{
		ID:             uuid.NewString(),
		Name:           "reparte-web",
		Secret:         auth.NewClientSecret(),
		PasswordClient: true,
	}
	if err := store.CreateClient(ctx, client); err != nil {
		return err
	}

	logger.Info("Seeded default OAuth client; store these credentials",
		"client_id", client.ID, "client_secret", client.Secret)
	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
