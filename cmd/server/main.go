// Command server runs the attendance hub API: the append-only session
// ledger, the audit trail, and the on-demand analytics over both.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/learnledger/attendance-hub/config"
	"github.com/learnledger/attendance-hub/internal/application/command"
	"github.com/learnledger/attendance-hub/internal/application/eventhandler"
	"github.com/learnledger/attendance-hub/internal/application/query"
	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/internal/infrastructure/messaging"
	"github.com/learnledger/attendance-hub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/learnledger/attendance-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/learnledger/attendance-hub/internal/interface/http"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.App.LogLevel),
		AddCaller: cfg.App.Environment == "development",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", logger.Err(err))
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting attendance hub", logger.String("environment", cfg.App.Environment))

	// ─── Storage ─────────────────────────────────────────────────────────────

	pgConfig := postgres.DefaultConfig()
	pgConfig.Host = cfg.Postgres.Host
	pgConfig.Port = cfg.Postgres.Port
	pgConfig.User = cfg.Postgres.User
	pgConfig.Password = cfg.Postgres.Password
	pgConfig.Database = cfg.Postgres.Database
	pgConfig.SSLMode = cfg.Postgres.SSLMode
	pgConfig.MaxConns = int32(cfg.Postgres.MaxConns)
	pgConfig.MinConns = int32(cfg.Postgres.MinConns)
	pgConfig.MaxConnLifetime = cfg.Postgres.MaxConnLifetime
	pgConfig.MaxConnIdleTime = cfg.Postgres.MaxConnIdleTime

	conn, err := postgres.NewConnection(ctx, pgConfig)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer conn.Close()
	log.Info("connected to postgres", logger.String("database", cfg.Postgres.Database))

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations applied")

	redisConfig := redisstore.DefaultConfig()
	redisConfig.Host = cfg.Redis.Host
	redisConfig.Port = cfg.Redis.Port
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize

	redisClient, err := redisstore.NewClient(ctx, redisConfig)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info("connected to redis", logger.String("addr", redisConfig.Addr()))

	sessions := redisstore.NewSessionStore(redisClient).WithTTL(cfg.Redis.SessionTTL)

	// ─── Repositories and event bus ──────────────────────────────────────────

	events := postgres.NewEventStore(conn)
	auditRepo := postgres.NewAuditRepository(conn)
	students := postgres.NewStudentRepository(conn)
	faculty := postgres.NewFacultyRepository(conn)
	subjects := postgres.NewSubjectRepository(conn)
	assignments := postgres.NewAssignmentRepository(conn)
	actors := postgres.NewActorRepository(conn)
	txManager := postgres.NewTxManager(conn)

	busOpts := []messaging.EventBusOption{messaging.WithLogger(log)}
	if cfg.EventBus.Async {
		busOpts = append(busOpts, messaging.WithAsyncMode(cfg.EventBus.Workers))
	}
	bus := messaging.NewInMemoryEventBus(busOpts...)
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("event bus close failed", logger.Err(err))
		}
	}()

	bus.Subscribe(shared.EventAssignmentCompleted, eventhandler.NewOnAssignmentCompletedHandler(
		students, faculty, log, eventhandler.DefaultAssignmentCompletedConfig(),
	))
	bus.Subscribe(shared.EventSessionRecorded, eventhandler.NewOnBackdatedSessionHandler(log))

	// ─── Application layer ───────────────────────────────────────────────────

	resolver := rbac.NewResolver(actors, faculty, sessions)

	deps := httpapi.Dependencies{
		Resolver: resolver,
		Tokens:   httpapi.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Actors:   actors,
		Sessions: sessions,
		Audit:    auditRepo,

		RecordSession: command.NewRecordSessionHandler(txManager, attendance.NewValidator(), bus),
		SwitchTenant:  command.NewSwitchTenantHandler(txManager, sessions, bus),
		ArchiveEntity: command.NewArchiveEntityHandler(txManager, bus),

		AttendanceVelocity: query.NewAttendanceVelocityHandler(events),
		LearningVelocity:   query.NewLearningVelocityHandler(events, students),
		AssignmentHealth:   query.NewAssignmentHealthHandler(events, assignments, subjects),
		FacultyPerformance: query.NewFacultyPerformanceHandler(events, faculty),
		ReconstructState:   query.NewReconstructStateHandler(auditRepo),
		ListSessions:       query.NewListSessionsHandler(events),
		ListAssignments:    query.NewListAssignmentsHandler(assignments),
		ListAudit:          query.NewListAuditHandler(auditRepo),

		ReadyCheck: func(ctx context.Context) error {
			if err := conn.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},

		Logger: log,
	}

	httpConfig := httpapi.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.ShutdownTimeout = cfg.HTTP.ShutdownTimeout
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS

	server, err := httpapi.NewServer(httpConfig, deps)
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}

	// ─── Run until signalled ─────────────────────────────────────────────────

	errCh := server.StartAsync()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
