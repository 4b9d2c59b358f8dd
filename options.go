// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package playerlog

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	now        func() time.Time
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
}

// WithLogger sets an optional logger for recovery, repair and compaction
// messages.  If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithRegisterer registers the store's metrics with r.  Without it the
// metrics are still kept but never exported.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(opts *options) {
		opts.registerer = r
	}
}

// WithClock overrides the source of snapshot write timestamps.
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		if now != nil {
			opts.now = now
		}
	}
}
