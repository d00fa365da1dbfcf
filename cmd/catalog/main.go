package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"schraper/catalog/internal/common"
	"schraper/catalog/internal/config"
	"schraper/catalog/internal/db"
	"schraper/catalog/internal/db/migrations"
	"schraper/catalog/internal/db/repositories"
	"schraper/catalog/internal/jobs"
	"schraper/catalog/internal/logging"
	"schraper/catalog/internal/metrics"
	"schraper/catalog/internal/services"
)

const usage = `usage: catalog <command> [args]

commands:
  migrate                   apply pending schema migrations
  load <snapshot.json>      upsert a snapshot file as one batch
  watch <snapshot.json>     reload the snapshot every -interval until interrupted
  runs <jobname> [limit]    list recent runs of a job, newest first
  status                    applied migrations and row counts
  show <slug>               show detail with poster, genres and rating
  cinemas <city_slug>       cinemas in a city
  showtimes <cinema_slug>   showtimes at a cinema
`

type app struct {
	cfg     *config.Config
	store   *db.Store
	catalog *services.CatalogService
	jobs    *jobs.Jobs
	runner  *migrations.Runner
	jobLog  *repositories.JobLogRepo
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	interval := flag.Duration("interval", time.Hour, "reload interval for watch")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *interval, flag.Args()); err != nil {
		logging.Error("Command failed", "command", flag.Arg(0), "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, interval time.Duration, args []string) error {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsRegistry(reg)

	a, err := newApp(cfg, m)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := metricsServer(cfg.MetricsAddr, reg)
		g.Go(func() error {
			logging.Info("Prometheus metrics endpoint registered", "addr", cfg.MetricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		// the metrics listener lives only as long as the command
		defer cancel()
		return a.dispatch(ctx, interval, args)
	})
	return g.Wait()
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func newApp(cfg *config.Config, m *metrics.MetricsRegistry) (*app, error) {
	store, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logging.Info("Connected to database", "driver", cfg.DBDriver)

	cache, err := newCache(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	catalog := services.NewCatalogService(
		repositories.NewCatalogRepo(store.ORM, m),
		repositories.NewCatalogQueryRepo(store.SQL),
		cache,
		cfg.CacheTTL,
		m,
	)

	return &app{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		jobs:    jobs.InitializeJobs(store, catalog, m),
		runner:  migrations.NewRunner(store.SQL, migrations.NewLocker(store.SQL), m),
		jobLog:  repositories.NewJobLogRepo(store.ORM),
	}, nil
}

func newCache(cfg *config.Config) (common.CacheInterface, error) {
	if cfg.CacheBackend == config.CacheRedis {
		cache, err := common.NewRedisCacheService(common.NewRedisClient(cfg.RedisAddr, cfg.RedisPass))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logging.Info("Using redis cache", "addr", cfg.RedisAddr)
		return cache, nil
	}
	return common.NewCacheService(cfg.CacheTTL, 2*cfg.CacheTTL), nil
}

func (a *app) close() {
	if err := a.catalog.Close(); err != nil {
		logging.Warn("Closing cache failed", "error", err.Error())
	}
	if err := a.store.Close(); err != nil {
		logging.Warn("Closing store failed", "error", err.Error())
	}
}

func (a *app) dispatch(ctx context.Context, interval time.Duration, args []string) error {
	cmd, rest := args[0], args[1:]

	if cmd == "watch" {
		if len(rest) != 1 {
			return errors.New("watch needs a snapshot path")
		}
		a.jobs.Load.RunScheduled(ctx, rest[0], interval)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	switch cmd {
	case "migrate":
		applied, err := a.jobs.Migrate.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]int{"applied": applied})

	case "load":
		if len(rest) != 1 {
			return errors.New("load needs a snapshot path")
		}
		result, err := a.jobs.Load.Run(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(result.Rows)

	case "runs":
		if len(rest) < 1 {
			return errors.New("runs needs a job name")
		}
		limit := 10
		if len(rest) > 1 {
			n, err := strconv.Atoi(rest[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", rest[1], err)
			}
			limit = n
		}
		runs, err := a.jobLog.RecentRuns(ctx, rest[0], limit)
		if err != nil {
			return err
		}
		return printJSON(runs)

	case "status":
		applied, err := a.runner.Applied(ctx)
		if err != nil {
			return err
		}
		counts, err := a.catalog.Counts(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"migrations": applied, "rows": counts})

	case "show":
		if len(rest) != 1 {
			return errors.New("show needs a slug")
		}
		detail, err := a.catalog.ShowDetail(ctx, rest[0])
		if err != nil {
			return err
		}
		if detail == nil {
			return fmt.Errorf("show %q not found", rest[0])
		}
		return printJSON(detail)

	case "cinemas":
		if len(rest) != 1 {
			return errors.New("cinemas needs a city slug")
		}
		cinemas, err := a.catalog.CinemasByCity(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(cinemas)

	case "showtimes":
		if len(rest) != 1 {
			return errors.New("showtimes needs a cinema slug")
		}
		showtimes, err := a.catalog.ShowtimesByCinema(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(showtimes)
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
