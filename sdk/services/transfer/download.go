// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/catalog"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

// DownloadURL is the OData resource of the product.
func (s *TransferService) DownloadURL(rec catalog.ProductRecord) string {
	return s.http.DownloadURL(rec.ID)
}

// Fetch downloads the archive of rec and returns it fully buffered in memory.
// A non-200 answer yields a *FetchError carrying the status and the response text.
func (s *TransferService) Fetch(ctx context.Context, rec catalog.ProductRecord) ([]byte, error) {
	url := s.DownloadURL(rec)
	filename := rec.ArchiveName()
	start := time.Now()

	resp, err := s.http.Stream(ctx, url)
	if err != nil {
		s.metrics.Download("error", 0, time.Since(start))
		return nil, fmt.Errorf("download of %s failed: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.metrics.Download("http_error", 0, time.Since(start))
		return nil, &FetchError{
			Filename:   filename,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var src io.Reader = resp.Body
	var gp *utils.Progress
	if s.progress != nil {
		gp = utils.NewProgress(s.progress, filename, resp.ContentLength)
		src = io.TeeReader(resp.Body, gp)
	}

	data, err := io.ReadAll(src)
	if gp != nil {
		gp.Done()
	}
	if err != nil {
		s.metrics.Download("error", len(data), time.Since(start))
		return nil, fmt.Errorf("download of %s interrupted: %w", filename, err)
	}

	s.metrics.Download("ok", len(data), time.Since(start))
	s.logger.Debug("archive downloaded",
		zap.String("filename", filename),
		zap.String("size", utils.HumanBytes(int64(len(data)))),
		zap.Duration("took", time.Since(start)))
	return data, nil
}
