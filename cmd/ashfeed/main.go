// Command ashfeed pages through a reviews endpoint, prefetches every photo through the
// image pipeline and serves Prometheus metrics while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ashfeed "github.com/Borislavv/go-ash-feed"
	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/feed"
	"github.com/Borislavv/go-ash-feed/internal/shared/bytes"
	"github.com/Borislavv/go-ash-feed/model"
	"github.com/gorilla/mux"
	"github.com/natefinch/lumberjack"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to the YAML config; built-in defaults when empty")
		baseURL     = flag.String("base-url", "", "reviews endpoint, overrides transport.base_url")
		maxPages    = flag.Int("pages", 0, "stop after this many pages; 0 loads until exhausted")
		metricsAddr = flag.String("metrics-addr", "", "serve /metrics on this address and wait for a signal")
		logFile     = flag.String("log-file", "", "write library logs to this file with rotation")
	)
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *baseURL, *maxPages, *metricsAddr, *logFile); err != nil {
		log.Fatal().Err(err).Msg("[ashfeed] failed")
	}
}

func run(ctx context.Context, configPath, baseURL string, maxPages int, metricsAddr, logFile string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if baseURL != "" {
		cfg.Transport.BaseURL = baseURL
	}

	var sink io.Writer = os.Stderr
	if logFile != "" {
		rotated := &lumberjack.Logger{Filename: logFile, MaxSize: 100, MaxBackups: 3, MaxAge: 7, Compress: true}
		defer rotated.Close()
		sink = rotated
	}
	logger := slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "ashFeed"),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	core, err := ashfeed.New(ctx, cfg, logger, ashfeed.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer core.Close()

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: router(reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info().Msgf("[ashfeed] serving metrics on %s", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	state, err := loadPages(gctx, core.Feed, maxPages)
	if err != nil {
		return err
	}
	log.Info().Int("items", len(state.Items)).Int("total", state.Total).Str("phase", state.Phase.String()).Msg("[ashfeed] feed loaded")

	if err = prefetch(gctx, core, state, cfg.Images.Workers); err != nil {
		return err
	}
	log.Info().
		Int64("entries", core.Cache.Len()).
		Str("size", bytes.FmtMem(uint64(core.Cache.Mem()))).
		Msg("[ashfeed] photos prefetched")

	if metricsAddr == "" {
		return nil
	}
	return g.Wait()
}

// loadPages drives the feed until it is exhausted, maxPages pages were merged or ctx is done.
func loadPages(ctx context.Context, f *feed.Feed, maxPages int) (model.FeedState, error) {
	states := make(chan model.FeedState, 1)
	f.OnStateChange(func(s model.FeedState) {
		select {
		case states <- s:
		default:
		}
	})

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		offset := f.State().Offset
		if err := f.LoadNextPage(); err != nil {
			if errors.Is(err, feed.ErrExhausted) {
				break
			}
			return model.FeedState{}, err
		}

		select {
		case <-ctx.Done():
			return f.State(), ctx.Err()
		case s := <-states:
			log.Debug().Int("offset", s.Offset).Bool("should_load", s.ShouldLoad).Msg("[ashfeed] page completed")
			if s.Offset == offset && s.Phase != model.PhaseExhausted {
				return s, errors.New("page load failed, see library logs")
			}
		}
	}
	return f.State(), nil
}

// prefetch warms the image cache with every avatar and photo of the feed.
func prefetch(ctx context.Context, core *ashfeed.Core, state model.FeedState, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, item := range state.Items {
		urls := item.PhotoURLs
		if item.AvatarURL != "" {
			urls = append([]string{item.AvatarURL}, urls...)
		}
		for _, u := range urls {
			g.Go(func() error {
				if _, err := core.Images.Load(gctx, u, nil); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.Warn().Err(err).Str("url", u).Msg("[ashfeed] photo skipped")
				}
				return nil
			})
		}
	}
	return g.Wait()
}

func router(reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}
