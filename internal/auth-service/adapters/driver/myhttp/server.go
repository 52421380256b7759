package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ridehail/config"
	"ridehail/internal/auth-service/adapters/driven/db"
	"ridehail/internal/auth-service/adapters/driver/myhttp/handle"
	"ridehail/internal/auth-service/core/services"
	"ridehail/internal/metrics"
	"ridehail/internal/mylogger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const shutdownWait = 10 * time.Second

type Server struct {
	ctx   context.Context
	cfg   *config.Config
	mylog mylogger.Logger

	router *chi.Mux
	srv    *http.Server
	db     *db.DB

	mu sync.Mutex
}

func NewServer(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	return &Server{
		ctx:    ctx,
		cfg:    cfg,
		mylog:  mylog,
		router: chi.NewRouter(),
	}
}

func (s *Server) Run() error {
	log := s.mylog.Action("server_start")

	database, err := db.New(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database
	log.Info("database connected")

	s.configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.AuthServicePort),
		Handler: s.router,
	}
	s.mu.Unlock()

	log.Info("server is running", "port", s.cfg.Srv.AuthServicePort)
	return s.serve()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.mylog.Action("server_stop")
	log.Info("shutting down")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownWait)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down http server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
	}

	log.Info("shut down gracefully")
	return nil
}

func (s *Server) serve() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) configure() {
	usersRepo := db.NewUsersRepo(s.db)
	authService := services.NewAuthService(s.mylog, usersRepo, s.cfg.App.JwtSecret)
	authHandler := handle.NewAuthHandler(authService, s.mylog)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	s.router.Use(metrics.Middleware)

	s.router.Post("/auth/register", authHandler.Register())
	s.router.Post("/auth/login", authHandler.Login())

	s.router.Get("/healthz", s.healthz())
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
}

func (s *Server) healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.IsAlive(); err != nil {
			handle.JsonErrorStatus(w, http.StatusServiceUnavailable, "DB_DOWN", err)
			return
		}
		handle.JsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
