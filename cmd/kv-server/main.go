package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/heysubinoy/keyvaluestore/internal/api"
	"github.com/heysubinoy/keyvaluestore/internal/store"
	"github.com/heysubinoy/keyvaluestore/pkg/config"
)

const shutdownTimeout = 10 * time.Second

var log = logrus.New()

type Options struct {
	Config   string `short:"c" long:"config" description:"config file (.ini, .yaml or .yml); pass --config= to use environment variables only" default:"keyvaluestore.ini"`
	LogLevel string `short:"l" long:"log-level" description:"overrides the configured log level"`
}

func initLogger(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(level)
	return nil
}

// newHTTPServer builds the store from cfg and returns a server ready to listen.
func newHTTPServer(cfg *config.Config) *http.Server {
	memStore := store.NewMemStore(store.Options{
		ReadToken:     cfg.ReadToken,
		WriteToken:    cfg.WriteToken,
		TrackModified: cfg.TrackModified,
	})
	srv := api.NewServer(store.NewInstrumentedStore(memStore), log)
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func run(ctx context.Context, httpServer *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(opts.LogLevel)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid --log-level: %v", err)
		}
	}
	if err := initLogger(cfg); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	httpServer := newHTTPServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"addr":           httpServer.Addr,
		"track_modified": cfg.TrackModified,
	}).Infof("Server started listening on port %d", cfg.Port)

	if err := run(ctx, httpServer); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
