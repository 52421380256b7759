package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ridehail/config"
	"ridehail/internal/metrics"
	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/adapters/driven/bm"
	"ridehail/internal/ride-service/adapters/driven/consumer"
	"ridehail/internal/ride-service/adapters/driven/db"
	"ridehail/internal/ride-service/adapters/driver/myhttp/handle"
	"ridehail/internal/ride-service/adapters/driver/myhttp/middleware"
	"ridehail/internal/ride-service/adapters/driver/myhttp/ws"
	"ridehail/internal/ride-service/core/domain/model"
	"ridehail/internal/ride-service/core/ports"
	"ridehail/internal/ride-service/core/services"

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

	db       *db.DB
	mb       ports.IRidesBroker
	hub      *ws.Hub
	consumer *consumer.DispatchConsumer

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

// Run wires adapters to services, configures routes and serves until the
// context ends or the listener fails.
func (s *Server) Run() error {
	log := s.mylog.Action("server_start")

	database, err := db.New(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database
	log.Info("database connected")

	mb, err := bm.New(s.ctx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	log.Info("message broker connected")

	if err := s.configure(); err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.RideServicePort),
		Handler: s.router,
	}
	s.mu.Unlock()

	log.Info("server is running", "port", s.cfg.Srv.RideServicePort)
	return s.serve()
}

// Stop shuts down the listener, the websocket hub and the adapters.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.mylog.Action("server_stop")
	log.Info("shutting down")

	if s.hub != nil {
		s.hub.Shutdown()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}

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

func (s *Server) configure() error {
	// Repositories
	ridesRepo := db.NewRidesRepo(s.db)

	// Core services and the realtime channel
	presence := services.NewPresenceRegistry()
	eventHandler := ws.NewEventHandler(s.cfg.App.JwtSecret)
	s.hub = ws.NewHub(s.mylog, eventHandler, presence, ridesRepo)

	ridesService := services.NewRidesService(s.mylog, ridesRepo, s.mb, presence)
	dispatchService := services.NewDispatchService(s.mylog, s.hub)

	// Bus -> websocket fan-out
	s.consumer = consumer.New(s.ctx, s.mylog, s.mb, dispatchService)
	if err := s.consumer.Run(); err != nil {
		return fmt.Errorf("start dispatch consumer: %w", err)
	}

	ridesHandler := handle.NewRidesHandler(ridesService, s.mylog)
	authMw := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	s.router.Use(metrics.Middleware)

	s.router.Method(http.MethodPost, "/rides",
		authMw.Wrap(ridesHandler.CreateRide(), model.RoleRider))
	s.router.Method(http.MethodGet, "/rides/available",
		authMw.Wrap(ridesHandler.AvailableRides(), model.RoleDriver))
	s.router.Method(http.MethodGet, "/rides",
		authMw.Wrap(ridesHandler.ListRides()))
	s.router.Method(http.MethodGet, "/rides/{ride_id}",
		authMw.Wrap(ridesHandler.GetRide()))
	s.router.Method(http.MethodPut, "/rides/{ride_id}/accept",
		authMw.Wrap(ridesHandler.AcceptRide(), model.RoleDriver))
	s.router.Method(http.MethodPut, "/rides/{ride_id}/status",
		authMw.Wrap(ridesHandler.UpdateStatus(), model.RoleDriver))
	s.router.Method(http.MethodPut, "/rides/{ride_id}/cancel",
		authMw.Wrap(ridesHandler.CancelRide(), model.RoleRider, model.RoleDriver, model.RoleAdmin))
	s.router.Method(http.MethodPost, "/rides/{ride_id}/rate",
		authMw.Wrap(ridesHandler.RateRide(), model.RoleRider))

	// Realtime channel; the auth handshake happens in-band after upgrade.
	s.router.Get("/ws/{actor_kind}/{actor_id}", s.hub.WsHandler())

	s.router.Get("/healthz", s.healthz())
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	return nil
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
