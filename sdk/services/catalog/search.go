// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Query returns the products of the given parameter sensed during the UTC day of date.
func (s *CatalogService) Query(ctx context.Context, p Parameter, date time.Time) ([]ProductRecord, error) {
	if p.ProductType() == "" {
		return nil, fmt.Errorf("unknown parameter %q", p)
	}
	return s.Search(ctx, NewSearchParameters(p, date))
}

// Search runs the catalog query and walks the "next" links, at most MaxPages pages
// (0 means unbounded). Records keep the catalog order. Any failure aborts the whole search.
func (s *CatalogService) Search(ctx context.Context, sp SearchParameters) ([]ProductRecord, error) {
	params := sp.Query()
	if s.conf.MaxRecords > 0 {
		params["maxRecords"] = strconv.Itoa(s.conf.MaxRecords)
	}

	var (
		records []ProductRecord
		pages   int
		seen    = map[string]bool{}
	)
	url := s.http.BuildURL(s.conf.SearchURL, params)

	for url != "" && !seen[url] {
		seen[url] = true

		page, next, err := s.fetchPage(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("catalog search failed (page %d): %w", pages+1, err)
		}
		pages++
		s.metrics.CatalogPage(len(page))
		s.logger.Debug("catalog page",
			zap.Int("page", pages),
			zap.Int("records", len(page)),
			zap.Bool("has_next", next != ""))

		records = append(records, page...)

		if len(page) == 0 || (s.conf.MaxPages > 0 && pages >= s.conf.MaxPages) {
			if next != "" {
				s.logger.Warn("catalog results truncated", zap.Int("pages", pages), zap.Int("records", len(records)))
			}
			break
		}
		url = next
	}

	if records == nil {
		records = []ProductRecord{}
	}
	s.logger.Info("catalog search done",
		zap.String("product_type", sp.ProductType),
		zap.String("start", sp.StartDate.Format(TimestampLayout)),
		zap.String("end", sp.CompletionDate.Format(TimestampLayout)),
		zap.Int("records", len(records)))
	return records, nil
}

func (s *CatalogService) fetchPage(ctx context.Context, url string) ([]ProductRecord, string, error) {
	body, _, err := s.http.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("json parsing failed: %w", err)
	}
	if resp.Features == nil {
		return nil, "", ErrNoFeatures
	}

	records := make([]ProductRecord, 0, len(*resp.Features))
	for _, f := range *resp.Features {
		records = append(records, ProductRecord{ID: f.ID, Title: f.Properties.Title})
	}

	var next string
	for _, l := range resp.Properties.Links {
		if l.Rel == "next" {
			next = l.Href
			break
		}
	}
	return records, next, nil
}
