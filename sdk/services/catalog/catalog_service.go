// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

type CatalogService struct {
	http       config.CoreHTTP
	conf       config.CatalogConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *utils.Metrics
}

type Option func(*CatalogService)

func WithHTTPClient(c *http.Client) Option {
	return func(s *CatalogService) { s.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CatalogService) { s.logger = l }
}

func WithMetrics(m *utils.Metrics) Option {
	return func(s *CatalogService) { s.metrics = m }
}

func NewCatalogService(_ context.Context, conf config.Config, opts ...Option) (*CatalogService, error) {
	if conf.Catalog.SearchURL == "" {
		return nil, errors.New("invalid catalog config: search url required")
	}
	s := &CatalogService{conf: conf.Catalog}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.http = config.NewHTTPCore(s.httpClient, conf.Core)
	return s, nil
}
