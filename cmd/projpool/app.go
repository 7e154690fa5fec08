package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"

	"github.com/projpool/projpool/internal/db"
	"github.com/projpool/projpool/internal/gemini"
	"github.com/projpool/projpool/internal/handlers"
	"github.com/projpool/projpool/internal/handlers/apidocs"
	"github.com/projpool/projpool/internal/handlers/middleware"
	"github.com/projpool/projpool/internal/handlers/render"
	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/metrics"
	"github.com/projpool/projpool/internal/repository/orm"
	"github.com/projpool/projpool/internal/repository/postgres"
	"github.com/projpool/projpool/internal/scheduler"
	"github.com/projpool/projpool/internal/service/auth"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
	"github.com/projpool/projpool/internal/service/cleanup"
)

const (
	shutdownTimeout = 5 * time.Second
	metricsPath     = "/metrics"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger     logger.Logger
	pool       *pgxpool.Pool
	scheduler  *scheduler.Scheduler
	hookNames  []string
	blueprints []string
}

// NewServerApp assembles independent application instance.
// Nothing is shared between instances: every one has its own pool, scheduler and metrics registry.
func NewServerApp(ctx context.Context, c *Config) (app *ServerApp, err error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	defer func() {
		if err != nil {
			pool.Close()
		}
	}()

	// Resource groups work through ORM bound to the same pool
	ormDB, err := db.OpenORM(pool, l)
	if err != nil {
		return nil, fmt.Errorf("error while binding orm. Err: %w", err)
	}

	docsConfig := apidocs.Config{}
	m := metrics.New()
	storage := postgres.NewStorage(pool)

	// Authentication
	callbacks := auth.NewCallbacks(storage.Blocklist(), m)
	tokens, err := jwtmanager.New(jwtmanager.Config{
		SecretKey: c.JWTSecretKey,
		AccessTTL: jwtmanager.DefaultAccessTTL,
	}, callbacks)
	if err != nil {
		return nil, fmt.Errorf("error while creating jwt manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokens, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Background jobs
	jobs := scheduler.New(l)
	cleaner, err := cleanup.New(storage.Blocklist(), l, m)
	if err != nil {
		return nil, fmt.Errorf("error while creating cleanup job. Err: %w", err)
	}
	if err := jobs.AddJob(cleanup.JobID, cleanup.JobSchedule, cleaner.Run); err != nil {
		return nil, fmt.Errorf("error while registering cleanup job. Err: %w", err)
	}

	// Blueprints
	router := mux.NewRouter()
	registry, err := handlers.NewRegistry(router, middleware.NewAuth(tokens, callbacks, l), m)
	if err != nil {
		return nil, err
	}

	projects := &orm.ProjectRepo{DB: ormDB}
	blueprints := []handlers.Blueprint{
		handlers.ImageBlueprint(&orm.ImageRepo{DB: ormDB}, projects, c.GCSBucketName, l),
		handlers.LabelBlueprint(&orm.LabelRepo{DB: ormDB}, projects, l),
		handlers.ProjectBlueprint(projects, l),
		handlers.UserBlueprint(authService, l),
		handlers.GeminiBlueprint(gemini.New(c.geminiConfig()), l),
	}
	if c.SchedulerAPIEnabled {
		blueprints = append(blueprints, handlers.SchedulerBlueprint(jobs, l))
	}
	for _, bp := range blueprints {
		if err := registry.Register(bp); err != nil {
			return nil, fmt.Errorf("error while registering blueprint. Err: %w", err)
		}
	}

	// API docs describe what has been registered
	doc, err := apidocs.Build(docsConfig, registry.Blueprints())
	if err != nil {
		return nil, fmt.Errorf("error while building API docs. Err: %w", err)
	}
	if err := apidocs.Register(router, docsConfig, doc); err != nil {
		return nil, err
	}

	router.Handle(metricsPath, m.Handler()).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.ServiceError(w, "Not found", http.StatusNotFound)
	})

	co := cors.New(cors.Options{
		AllowedOrigins: c.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    co.Handler(middleware.Logger(l)(router)),
		logger:     l,
		pool:       pool,
		scheduler:  jobs,
		hookNames:  tokens.HookNames(),
		blueprints: registry.Names(),
	}, nil
}

// Names of registered blueprints in registration order
func (s *ServerApp) Blueprints() []string {
	return s.blueprints
}

// Names of authentication hooks
func (s *ServerApp) HookNames() []string {
	return s.hookNames
}

func (s *ServerApp) Jobs() []scheduler.JobInfo {
	return s.scheduler.Jobs()
}

// Run starts scheduler and http server and stops both gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")

		if err := s.scheduler.Stop(timeoutCtx); err != nil {
			s.logger.Error("scheduler stopped with running jobs", "error", err)
		}
		close(idleConnsClosed)
	}()

	s.scheduler.Start()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr, "blueprints", s.blueprints)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}

// Close releases database pool
func (s *ServerApp) Close() {
	s.pool.Close()
}
