package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"legajo/internal/audit"
	employeeHandler "legajo/internal/employee/handler"
	employeeMetrics "legajo/internal/employee/metrics"
	employeeService "legajo/internal/employee/service"
	employeeStore "legajo/internal/employee/store"
	leaveHandler "legajo/internal/leave/handler"
	leaveMetrics "legajo/internal/leave/metrics"
	leaveService "legajo/internal/leave/service"
	leaveStore "legajo/internal/leave/store"
	"legajo/internal/platform/config"
	"legajo/internal/platform/httpserver"
	"legajo/internal/platform/kafka"
	"legajo/internal/platform/logger"
	"legajo/internal/platform/metrics"
	"legajo/internal/platform/postgres"
	redisclient "legajo/internal/platform/redis"
	"legajo/pkg/platform/circuit"
	"legajo/pkg/platform/httputil"
	"legajo/pkg/platform/middleware/metadata"
	"legajo/pkg/platform/middleware/requesttime"
)

// infra holds the optional backing services; nil fields are not configured.
type infra struct {
	db    *sql.DB
	redis *redisclient.Client
	kafka *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// main wires dependencies, exposes the HTTP router, and keeps the server
// lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	deps, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	empMetrics := employeeMetrics.New()
	httpMetrics := metrics.New()

	var store employeeService.Store
	var auditStore audit.Store
	var leaves leaveService.Store
	if deps.db != nil {
		pg := employeeStore.NewPostgres(deps.db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		pgAudit := audit.NewPostgresStore(deps.db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			return err
		}
		pgLeave := leaveStore.NewPostgres(deps.db)
		if err := pgLeave.EnsureSchema(ctx); err != nil {
			return err
		}
		store, auditStore, leaves = pg, pgAudit, pgLeave
	} else {
		log.Warn("DATABASE_URL not set, keeping records in memory")
		store, auditStore, leaves = employeeStore.NewInMemory(), audit.NewInMemoryStore(), leaveStore.NewInMemory()
	}
	if deps.redis != nil {
		store = employeeStore.NewCached(store, deps.redis.Client, cfg.EmployeeCacheTTL,
			employeeStore.WithCacheLogger(log),
			employeeStore.WithCacheObserver(empMetrics),
		)
	}

	publisher := audit.NewPublisher(auditStore, log)
	var worker *audit.Worker
	if deps.kafka != nil {
		if err := kafka.EnsureTopic(ctx, deps.kafka, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions); err != nil {
			return err
		}
		breaker := circuit.New("audit-kafka", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
		worker = audit.NewWorker(audit.NewKafkaSink(deps.kafka, cfg.Kafka.AuditTopic), publisher.WithOutbox(), log,
			audit.WithBreaker(breaker),
		)
	}

	svc, err := employeeService.New(store,
		employeeService.WithLogger(log),
		employeeService.WithMetrics(empMetrics),
		employeeService.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}
	leaveSvc, err := leaveService.New(leaves,
		leaveService.WithLogger(log),
		leaveService.WithMetrics(leaveMetrics.New()),
		leaveService.WithAuditPublisher(publisher),
		leaveService.WithEmployees(svc),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(metadata.RequestMetadata)
	router.Use(requesttime.Middleware)
	router.Use(httpMetrics.Middleware)
	router.Use(chimw.Timeout(cfg.HTTP.RequestTimeout))
	router.Get("/healthz", healthHandler(deps))
	router.Handle("/metrics", promhttp.Handler())
	employeeHandler.New(svc, log).Register(router)
	leaveHandler.New(leaveSvc, log).Register(router)

	srv := httpserver.New(cfg.Addr, cfg.HTTP, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, cfg.HTTP.ShutdownTimeout, log)
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	var err error

	if cfg.DatabaseURL != "" {
		if deps.db, err = postgres.Open(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		log.Info("connected to postgres")
	}
	if deps.redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		deps.close()
		return nil, err
	}
	if deps.redis != nil {
		log.Info("employee cache enabled", "ttl", cfg.EmployeeCacheTTL.String())
	}
	if deps.kafka, err = kafka.New(ctx, cfg.Kafka); err != nil {
		deps.close()
		return nil, err
	}
	if deps.kafka != nil {
		log.Info("forwarding audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	return deps, nil
}

func healthHandler(deps *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if deps.db != nil {
			status["postgres"] = "ok"
			if err := deps.db.PingContext(ctx); err != nil {
				status["postgres"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
			}
		}
		if deps.redis != nil {
			status["redis"] = "ok"
			if err := deps.redis.Health(ctx); err != nil {
				status["redis"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
