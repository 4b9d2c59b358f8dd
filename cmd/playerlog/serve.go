// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bpowers/playerlog"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "hold the log open, autosaving and compacting on a schedule, until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "autosave-interval",
			Usage: "how often to save every player (overrides the config file)",
		},
		&cli.DurationFlag{
			Name:  "compact-interval",
			Usage: "how often to compact; 0 disables (overrides the config file)",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "listen address for /metrics; empty disables (overrides the config file)",
		},
	},
	Action: func(c *cli.Context) error {
		s, err := loadSettings(c)
		if err != nil {
			return err
		}
		if c.IsSet("autosave-interval") {
			if s.autosaveInterval = c.Duration("autosave-interval"); s.autosaveInterval <= 0 {
				return errors.New("autosave-interval must be positive")
			}
		}
		if c.IsSet("compact-interval") {
			s.compactInterval = c.Duration("compact-interval")
		}
		if c.IsSet("metrics-addr") {
			s.metricsAddr = c.String("metrics-addr")
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, s, s.logger(c.App.ErrWriter))
	},
}

// serve runs until ctx is done, then closes the store, which saves
// every player one last time.
func serve(ctx context.Context, s *settings, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// bind first so a bad address fails before anything is running
	var ln net.Listener
	if s.metricsAddr != "" {
		var err error
		if ln, err = net.Listen("tcp", s.metricsAddr); err != nil {
			return fmt.Errorf("net.Listen(%s): %w", s.metricsAddr, err)
		}
	}

	store, err := playerlog.Open(s.path, playerlog.WithLogger(logger), playerlog.WithRegisterer(reg))
	if err != nil {
		if ln != nil {
			_ = ln.Close()
		}
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, s.autosaveInterval, func() {
			if err := store.SaveAll(); err != nil {
				// retried on the next tick
				logger.Error("autosave failed", "err", err)
			}
		})
	})
	if s.compactInterval > 0 {
		g.Go(func() error {
			return every(ctx, s.compactInterval, func() {
				if _, err := store.Compact(); err != nil {
					logger.Error("compaction failed", "err", err)
				}
			})
		})
	}
	if ln != nil {
		logger.Info("serving metrics", "addr", ln.Addr().String())
		startMetrics(ctx, g, ln, reg)
	}

	logger.Info("serving player log", "path", store.Path(), "players", store.Len())
	err = g.Wait()
	if closeErr := store.Close(); closeErr != nil {
		logger.Error("closing player log", "err", closeErr)
		if err == nil {
			err = closeErr
		}
	}
	logger.Info("player log closed", "path", store.Path())
	return err
}

// every calls fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

func startMetrics(ctx context.Context, g *errgroup.Group, ln net.Listener, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}
