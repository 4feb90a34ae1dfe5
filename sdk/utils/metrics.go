// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics groups the counters of one run. All methods accept a nil receiver so
// services can be used without metrics.
type Metrics struct {
	Registry *prometheus.Registry

	AuthAttempts     *prometheus.CounterVec
	RecordsFound     prometheus.Counter
	CatalogPages     prometheus.Counter
	Downloads        *prometheus.CounterVec
	DownloadedBytes  prometheus.Counter
	DownloadDuration prometheus.Histogram
	ExtractedFiles   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tropomi_auth_attempts_total",
			Help: "Token requests by result.",
		}, []string{"result"}),
		RecordsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tropomi_catalog_records_total",
			Help: "Product records returned by the catalog.",
		}),
		CatalogPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tropomi_catalog_pages_total",
			Help: "Catalog result pages fetched.",
		}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tropomi_downloads_total",
			Help: "Product downloads by outcome.",
		}, []string{"outcome"}),
		DownloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tropomi_downloaded_bytes_total",
			Help: "Archive bytes received.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tropomi_download_duration_seconds",
			Help:    "Time spent fetching one archive.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ExtractedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tropomi_extracted_files_total",
			Help: "Files written by the extractor.",
		}),
	}
	m.Registry.MustRegister(
		m.AuthAttempts,
		m.RecordsFound,
		m.CatalogPages,
		m.Downloads,
		m.DownloadedBytes,
		m.DownloadDuration,
		m.ExtractedFiles,
	)
	return m
}

func (m *Metrics) AuthAttempt(result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) CatalogPage(records int) {
	if m == nil {
		return
	}
	m.CatalogPages.Inc()
	m.RecordsFound.Add(float64(records))
}

func (m *Metrics) Download(outcome string, size int, took time.Duration) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(outcome).Inc()
	m.DownloadedBytes.Add(float64(size))
	m.DownloadDuration.Observe(took.Seconds())
}

func (m *Metrics) Extracted(files int) {
	if m == nil {
		return
	}
	m.ExtractedFiles.Add(float64(files))
}

// Push sends the registry to a Prometheus Pushgateway, grouped by run id.
func (m *Metrics) Push(ctx context.Context, url, job, runID string) error {
	if m == nil || url == "" {
		return nil
	}
	return push.New(url, job).
		Gatherer(m.Registry).
		Grouping("run_id", runID).
		PushContext(ctx)
}
