// Package serverrunner wires persistence, cache, queues and the HTTP
// API into the long-running server mode.
package serverrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kremlit/email-enricher/internal/api"
	"github.com/kremlit/email-enricher/internal/api/handlers"
	"github.com/kremlit/email-enricher/internal/cache"
	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/enricher"
	"github.com/kremlit/email-enricher/internal/linkedin"
	"github.com/kremlit/email-enricher/internal/mq"
	"github.com/kremlit/email-enricher/internal/oracle"
	"github.com/kremlit/email-enricher/internal/queue"
	"github.com/kremlit/email-enricher/internal/repository/postgres"
	"github.com/kremlit/email-enricher/internal/repository/sqlite"
	"github.com/kremlit/email-enricher/internal/service"
	"github.com/kremlit/email-enricher/internal/watchdog"
	"github.com/kremlit/email-enricher/runner"
	"github.com/kremlit/email-enricher/tlmt"
)

type serverRunner struct {
	cfg *runner.Config

	db         *sql.DB
	cache      cache.Cache
	queue      *queue.Queue
	worker     *queue.Worker
	mqPub      *mq.RabbitMQPublisher
	mqConsumer *mq.RabbitMQConsumer

	batchService *service.BatchService
	processor    *service.Processor
	monitor      *watchdog.Monitor
	server       *http.Server
}

func New(cfg *runner.Config) (runner.Runner, error) {
	r := &serverRunner{cfg: cfg}

	batches, outcomes, err := r.openRepositories()
	if err != nil {
		return nil, err
	}

	r.cache = r.openCache()

	var o oracle.Verifier
	if cfg.ReoonAPIKey != "" {
		o = oracle.NewReoonClient(oracle.ReoonConfig{
			APIURL: cfg.ReoonAPIURL,
			APIKey: cfg.ReoonAPIKey,
			Mode:   cfg.ReoonMode,
		})
	} else {
		log.Println("[ServerRunner] WARNING: no Reoon API key configured, every candidate will be accepted")
		o = &oracle.NoOpVerifier{}
	}

	finder := linkedin.NewFinder()

	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		q, err := queue.New(&queue.Config{
			RedisURL:  cfg.RedisURL,
			RedisAddr: cfg.RedisAddr,
			Password:  cfg.RedisPass,
			DB:        cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis queue: %w", err)
		}

		r.queue = q
	}

	if cfg.RabbitMQURL != "" {
		pub, err := mq.NewPublisher(mq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect rabbitmq: %w", err)
		}

		r.mqPub = pub
	}

	if r.mqPub != nil {
		r.batchService = service.NewBatchServiceWithMQ(batches, outcomes, r.mqPub, r.queue, r.cache)
	} else {
		r.batchService = service.NewBatchService(batches, outcomes, r.queue, r.cache)
	}

	r.processor = service.NewProcessor(r.batchService, o, finder)
	r.monitor = watchdog.NewMonitor(batches, r.batchService, 0, 0)

	verifier := enricher.NewVerifier(o,
		enricher.WithProbeDelay(cfg.ProbeDelay),
		enricher.WithGate(enricher.NewGate(cfg.ProbeDelay)),
	)
	lookupService := service.NewLookupService(verifier, r.cache, finder)
	statsService := service.NewStatsService(batches, outcomes)

	router := api.NewRouter(
		handlers.NewLookupHandler(lookupService),
		handlers.NewBatchHandler(r.batchService),
		handlers.NewStatsHandler(statsService),
		handlers.NewLinkedInHandler(finder),
	)

	r.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Setup(cfg.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if r.queue != nil {
		worker, err := queue.NewWorker(&queue.WorkerConfig{
			RedisURL:    cfg.RedisURL,
			RedisAddr:   cfg.RedisAddr,
			Password:    cfg.RedisPass,
			DB:          cfg.RedisDB,
			Concurrency: cfg.Concurrency,
		}, r.handleBatch)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue worker: %w", err)
		}

		r.worker = worker
	}

	if cfg.RabbitMQURL != "" {
		consumer, err := mq.NewConsumer(mq.ConsumerConfig{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create rabbitmq consumer: %w", err)
		}

		r.mqConsumer = consumer
	}

	return r, nil
}

func (r *serverRunner) openRepositories() (domain.BatchRepository, domain.OutcomeRepository, error) {
	if r.cfg.Dsn != "" {
		db, err := postgres.OpenConnection(r.cfg.Dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect postgres: %w", err)
		}

		if err := postgres.CreateSchema(db); err != nil {
			return nil, nil, err
		}

		r.db = db
		repos := postgres.NewRepositories(db)

		log.Println("[ServerRunner] using PostgreSQL storage")

		return repos.Batches, repos.Outcomes, nil
	}

	if err := os.MkdirAll(r.cfg.DataFolder, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data folder: %w", err)
	}

	db, err := sqlite.OpenConnection(filepath.Join(r.cfg.DataFolder, "enricher.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := sqlite.RunMigrations(db); err != nil {
		return nil, nil, err
	}

	r.db = db
	repos := sqlite.NewRepositories(db)

	log.Println("[ServerRunner] using embedded SQLite storage")

	return repos.Batches, repos.Outcomes, nil
}

func (r *serverRunner) openCache() cache.Cache {
	if r.cfg.RedisAddr == "" {
		return cache.NewMemoryCache()
	}

	c, err := cache.NewRedisCache(cache.Config{
		Addr:     r.cfg.RedisAddr,
		Password: r.cfg.RedisPass,
		DB:       r.cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[ServerRunner] WARNING: redis cache unavailable, using in-memory cache: %v", err)
		return cache.NewMemoryCache()
	}

	return c
}

func (r *serverRunner) handleBatch(ctx context.Context, payload *queue.BatchPayload) error {
	return r.processor.Process(ctx, payload.BatchID)
}

func (r *serverRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("server_start", map[string]any{
		"postgres": r.cfg.Dsn != "",
		"redis":    r.queue != nil,
		"rabbitmq": r.mqConsumer != nil,
	})
	_ = runner.Telemetry().Send(ctx, evt)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[ServerRunner] API listening on %s", r.cfg.Addr)

		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return r.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return r.monitor.Run(gctx)
	})

	if r.worker != nil {
		g.Go(func() error {
			err := r.worker.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if r.mqConsumer != nil {
		g.Go(func() error {
			err := r.mqConsumer.Consume(gctx, func(ctx context.Context, msg *mq.BatchMessage) error {
				return r.processor.Process(ctx, msg.BatchID)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if r.worker == nil && r.mqConsumer == nil {
		// No broker configured: process batches in-process so the API
		// still works on a single node.
		g.Go(func() error {
			return r.pollPending(gctx)
		})
	}

	return g.Wait()
}

// pollPending picks up pending batches directly when no queue transport
// is configured.
func (r *serverRunner) pollPending(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	log.Println("[ServerRunner] no queue configured, processing batches in-process")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			status := domain.BatchStatusPending
			pending, _, err := r.batchService.List(ctx, domain.BatchListParams{
				Status: &status,
				Limit:  10,
			})
			if err != nil {
				log.Printf("[ServerRunner] failed to list pending batches: %v", err)
				continue
			}

			for _, batch := range pending {
				if err := r.processor.Process(ctx, batch.ID); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}

					log.Printf("[ServerRunner] batch %s failed: %v", batch.ID, err)
				}
			}
		}
	}
}

func (r *serverRunner) Close(context.Context) error {
	if r.mqConsumer != nil {
		_ = r.mqConsumer.Close()
	}

	if r.mqPub != nil {
		_ = r.mqPub.Close()
	}

	if r.queue != nil {
		_ = r.queue.Close()
	}

	if r.cache != nil {
		_ = r.cache.Close()
	}

	if r.db != nil {
		return r.db.Close()
	}

	return nil
}
