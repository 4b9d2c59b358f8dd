// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package playerlog

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "playerlog"

type metrics struct {
	appends            prometheus.Counter
	appendedBytes      prometheus.Counter
	recoveredRecords   prometheus.Counter
	skippedEnvelopes   prometheus.Counter
	discardedTailBytes prometheus.Counter
	compactions        prometheus.Counter
	reclaimedBytes     prometheus.Counter
	cachedPlayers      prometheus.Gauge
	logBytes           prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "appends_total",
			Help:      "Snapshots appended to the log.",
		}),
		appendedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "appended_bytes_total",
			Help:      "Bytes appended to the log, envelopes included.",
		}),
		recoveredRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recovered_records_total",
			Help:      "Valid snapshots read by recovery scans.",
		}),
		skippedEnvelopes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "skipped_envelopes_total",
			Help:      "Checksummed envelopes recovery could not use.",
		}),
		discardedTailBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "discarded_tail_bytes_total",
			Help:      "Bytes of torn or corrupt tail truncated at open.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "compactions_total",
			Help:      "Completed compactions.",
		}),
		reclaimedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reclaimed_bytes_total",
			Help:      "Bytes removed from the log by compaction.",
		}),
		cachedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cached_players",
			Help:      "Player records held in memory.",
		}),
		logBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "log_bytes",
			Help:      "Current size of the log file.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	counters := []*prometheus.Counter{
		&m.appends, &m.appendedBytes, &m.recoveredRecords, &m.skippedEnvelopes,
		&m.discardedTailBytes, &m.compactions, &m.reclaimedBytes,
	}
	for _, c := range counters {
		existing, err := register(reg, *c)
		if err != nil {
			return nil, err
		}
		*c = existing.(prometheus.Counter)
	}
	for _, g := range []*prometheus.Gauge{&m.cachedPlayers, &m.logBytes} {
		existing, err := register(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = existing.(prometheus.Gauge)
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector left behind by
// an earlier Store opened against the same registry.
func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, fmt.Errorf("prometheus.Register: %w", err)
	}
	return c, nil
}
