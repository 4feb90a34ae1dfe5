// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs the whole download: authenticate, search the catalog, then fetch
// and extract every product in catalog order. Everything runs sequentially on the caller's
// goroutine over a single HTTP session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/auth"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/catalog"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/transfer"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

type Pipeline struct {
	conf       config.Config
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *utils.Metrics
	progress   io.Writer
	s3         *config.S3Client
	runID      string
}

type Option func(*Pipeline)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithMetrics(m *utils.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

func WithS3Client(c *config.S3Client) Option {
	return func(p *Pipeline) { p.s3 = c }
}

func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

func New(conf config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{conf: conf}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: conf.Core.Timeout}
	}
	if p.runID == "" {
		p.runID = utils.NewRunID()
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.With(zap.String("run_id", p.runID))
	return p
}

func (p *Pipeline) RunID() string {
	return p.runID
}

// OutputDir is <root>/<prefix><product type>_<YYYYMMDD>.
func OutputDir(out config.OutputConfig, productType string, date time.Time) string {
	prefix := out.Prefix
	if prefix == "" {
		prefix = utils.DefaultOutputPrefix
	}
	name := prefix + productType + "_" + date.Format(catalog.DateLayout)
	if out.Root == "" {
		return name
	}
	return filepath.Join(out.Root, name)
}

// Run executes the pipeline. The manifest is returned even when err != nil, as far as the
// run got. Authentication, catalog and extraction failures abort the run; a download that
// does not answer 200 is recorded and skipped.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Manifest, error) {
	productType := req.Parameter.ProductType()
	if productType == "" {
		return nil, fmt.Errorf("unknown parameter %q", req.Parameter)
	}
	if req.Credentials == nil {
		return nil, errors.New("credential source required")
	}

	outDir := OutputDir(p.conf.Output, productType, req.Date)
	m := &Manifest{
		RunID:       p.runID,
		Parameter:   req.Parameter,
		ProductType: productType,
		Date:        req.Date.Format(catalog.DateLayout),
		OutputDir:   outDir,
		StartedAt:   time.Now().UTC(),
		Outcomes:    []transfer.DownloadOutcome{},
	}
	log := p.logger.With(zap.String("product_type", productType), zap.String("date", m.Date))

	// 1) token
	authSvc, err := auth.NewAuthService(ctx, p.conf,
		auth.WithHTTPClient(p.httpClient),
		auth.WithLogger(log),
		auth.WithMetrics(p.metrics))
	if err != nil {
		return m, err
	}
	token, err := authSvc.Authenticate(ctx, req.Credentials)
	if err != nil {
		return m, err
	}

	// 2) catalog
	catalogSvc, err := catalog.NewCatalogService(ctx, p.conf,
		catalog.WithHTTPClient(p.httpClient),
		catalog.WithLogger(log),
		catalog.WithMetrics(p.metrics))
	if err != nil {
		return m, err
	}
	records, err := catalogSvc.Query(ctx, req.Parameter, req.Date)
	if err != nil {
		return m, err
	}
	m.Records = len(records)
	if len(records) == 0 {
		log.Warn("no products found")
	}

	// 3) fetch + extract
	transferOpts := []transfer.Option{
		transfer.WithHTTPClient(p.httpClient),
		transfer.WithLogger(log),
		transfer.WithMetrics(p.metrics),
	}
	if p.progress != nil {
		transferOpts = append(transferOpts, transfer.WithProgress(p.progress))
	}
	if p.s3 != nil {
		transferOpts = append(transferOpts, transfer.WithS3Client(p.s3))
	}
	transferSvc, err := transfer.NewTransferService(ctx, p.conf, token, transferOpts...)
	if err != nil {
		return m, err
	}

	for i, rec := range records {
		outcome, err := p.process(ctx, transferSvc, rec, outDir, log.With(zap.Int("index", i+1), zap.Int("of", len(records))))
		m.Outcomes = append(m.Outcomes, outcome)
		if err != nil {
			p.finish(m, log)
			return m, err
		}
	}

	p.finish(m, log)

	if transferSvc.PublishEnabled() && m.Extracted() > 0 {
		keys, err := transferSvc.Publish(ctx, outDir)
		m.Published = keys
		if err != nil {
			return m, fmt.Errorf("publishing %s failed: %w", outDir, err)
		}
	}

	if m.Complete() {
		log.Info("download complete", zap.Int("products", m.Extracted()))
	} else if m.Failed() > 0 {
		log.Warn("download incomplete", zap.Int("extracted", m.Extracted()), zap.Int("failed", m.Failed()))
	}
	return m, nil
}

// process handles one record. A returned error aborts the run.
func (p *Pipeline) process(ctx context.Context, svc *transfer.TransferService, rec catalog.ProductRecord, outDir string, log *zap.Logger) (transfer.DownloadOutcome, error) {
	outcome := transfer.DownloadOutcome{
		ID:       rec.ID,
		Title:    rec.Title,
		Filename: rec.ArchiveName(),
		URL:      svc.DownloadURL(rec),
	}

	data, err := svc.Fetch(ctx, rec)
	if err != nil {
		outcome.Status = transfer.StatusFailed
		outcome.Error = err.Error()

		var fetchErr *transfer.FetchError
		if errors.As(err, &fetchErr) {
			outcome.StatusCode = fetchErr.StatusCode
			outcome.Body = fetchErr.Body
			log.Warn("failed to download",
				zap.String("filename", fetchErr.Filename),
				zap.String("url", fetchErr.URL),
				zap.Int("status", fetchErr.StatusCode),
				zap.String("body", fetchErr.Body))
			return outcome, nil
		}
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		log.Warn("failed to download", zap.String("filename", outcome.Filename), zap.Error(err))
		return outcome, nil
	}
	outcome.StatusCode = http.StatusOK
	outcome.Size = len(data)

	files, err := svc.Extract(data, outDir)
	outcome.Files = files
	if err != nil {
		outcome.Status = transfer.StatusFailed
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("extracting %s: %w", outcome.Filename, err)
	}
	outcome.Status = transfer.StatusExtracted
	log.Info("extracted",
		zap.String("filename", outcome.Filename),
		zap.String("dir", outDir),
		zap.Int("files", len(files)))
	return outcome, nil
}

func (p *Pipeline) finish(m *Manifest, log *zap.Logger) {
	m.FinishedAt = time.Now().UTC()
	if _, err := os.Stat(m.OutputDir); err != nil {
		return
	}
	if err := WriteManifest(m); err != nil {
		log.Warn("failed to write manifest", zap.Error(err))
	}
}

// WriteManifest stores m as YAML in its output directory.
func WriteManifest(m *Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(m.OutputDir, ManifestName), b, 0o644)
}
