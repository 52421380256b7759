package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ridehail/config"
	admindb "ridehail/internal/admin-service/adapters/driven/db"
	"ridehail/internal/admin-service/adapters/driver/myhttp/handle"
	"ridehail/internal/admin-service/core/services"
	authdb "ridehail/internal/auth-service/adapters/driven/db"
	authservices "ridehail/internal/auth-service/core/services"
	"ridehail/internal/metrics"
	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/adapters/driven/bm"
	ridedb "ridehail/internal/ride-service/adapters/driven/db"
	"ridehail/internal/ride-service/adapters/driver/myhttp/middleware"
	"ridehail/internal/ride-service/core/domain/model"
	rideports "ridehail/internal/ride-service/core/ports"

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

	db     *admindb.DB
	rideDb *ridedb.DB
	authDb *authdb.DB
	mb     rideports.IRidesBroker

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

	database, err := admindb.New(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database

	rideDatabase, err := ridedb.New(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to ride database: %w", err)
	}
	s.rideDb = rideDatabase

	authDatabase, err := authdb.New(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to user database: %w", err)
	}
	s.authDb = authDatabase
	log.Info("database connected")

	mb, err := bm.New(s.ctx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	log.Info("message broker connected")

	s.configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.AdminServicePort),
		Handler: s.router,
	}
	s.mu.Unlock()

	log.Info("server is running", "port", s.cfg.Srv.AdminServicePort)
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

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			log.Error("failed to close message broker", err)
		}
	}
	if s.rideDb != nil {
		if err := s.rideDb.Close(); err != nil {
			log.Error("failed to close ride database", err)
		}
	}
	if s.authDb != nil {
		if err := s.authDb.Close(); err != nil {
			log.Error("failed to close user database", err)
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
	overviewRepo := admindb.NewOverviewRepo(s.db)
	ridesRepo := ridedb.NewRidesRepo(s.rideDb)
	usersRepo := authdb.NewUsersRepo(s.authDb)

	adminService := services.NewAdminService(s.mylog, overviewRepo, ridesRepo, s.mb)
	authService := authservices.NewAuthService(s.mylog, usersRepo, s.cfg.App.JwtSecret)
	adminHandler := handle.NewAdminHandler(adminService, authService, s.mylog)
	authMw := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	s.router.Use(metrics.Middleware)

	s.router.Post("/admin/login", adminHandler.Login())
	s.router.Method(http.MethodGet, "/admin/overview",
		authMw.Wrap(adminHandler.Overview(), model.RoleAdmin))
	s.router.Method(http.MethodGet, "/admin/rides",
		authMw.Wrap(adminHandler.ListRides(), model.RoleAdmin))
	s.router.Method(http.MethodPut, "/admin/rides/{ride_id}/override",
		authMw.Wrap(adminHandler.OverrideStatus(), model.RoleAdmin))

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
