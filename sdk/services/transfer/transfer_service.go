// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

type TransferService struct {
	http       config.CoreHTTP
	s3         *config.S3Client
	s3conf     config.S3Config
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *utils.Metrics
	progress   io.Writer
}

type Option func(*TransferService)

func WithHTTPClient(c *http.Client) Option {
	return func(s *TransferService) { s.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *TransferService) { s.logger = l }
}

func WithMetrics(m *utils.Metrics) Option {
	return func(s *TransferService) { s.metrics = m }
}

// WithS3Client overrides the client built from the S3 config.
func WithS3Client(c *config.S3Client) Option {
	return func(s *TransferService) { s.s3 = c }
}

// WithProgress renders a progress line for every download on w.
func WithProgress(w io.Writer) Option {
	return func(s *TransferService) { s.progress = w }
}

// NewTransferService builds the download session. Every fetch carries accessToken as a
// bearer token; the header is fixed for the lifetime of the service.
func NewTransferService(ctx context.Context, conf config.Config, accessToken string, opts ...Option) (*TransferService, error) {
	if accessToken == "" {
		return nil, errors.New("access token required")
	}
	s := &TransferService{s3conf: conf.S3}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.http = config.NewHTTPCore(s.httpClient, conf.Core).WithAccessToken(accessToken)

	if s.s3 == nil && conf.S3.Enabled() {
		s3c, err := config.NewS3Client(ctx, conf.S3)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}
		s.s3 = s3c
	}
	return s, nil
}
