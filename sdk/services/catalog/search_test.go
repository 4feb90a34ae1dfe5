// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package catalog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/catalog"
)

type featureJSON struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

func features(n int, offset int) []featureJSON {
	out := make([]featureJSON, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, featureJSON{
			ID:         fmt.Sprintf("id-%03d", offset+i),
			Properties: map[string]any{"title": fmt.Sprintf("S5P_OFFL_L2__CH4____%03d.nc", offset+i)},
		})
	}
	return out
}

func newTestService(t *testing.T, handler http.Handler, maxPages int) *catalog.CatalogService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := catalog.NewCatalogService(context.Background(), config.Config{
		Catalog: config.CatalogConfig{SearchURL: srv.URL + "/search.json", MaxPages: maxPages},
	}, catalog.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return svc
}

func TestDayRange(t *testing.T) {
	for _, d := range []time.Time{
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 17, 45, 3, 0, time.UTC),
		time.Date(2023, 12, 31, 23, 59, 59, 0, time.FixedZone("CET", 3600)),
	} {
		start, end := catalog.DayRange(d)
		assert.Equal(t, time.UTC, start.Location())
		assert.Equal(t, []int{d.Year(), int(d.Month()), d.Day()}, []int{start.Year(), int(start.Month()), start.Day()})
		assert.Equal(t, d.Format("2006-01-02")+"T00:00:00.000Z", start.Format(catalog.TimestampLayout))
		assert.Equal(t, d.Format("2006-01-02")+"T23:59:59.999Z", end.Format(catalog.TimestampLayout))
		assert.Equal(t, 24*time.Hour-time.Millisecond, end.Sub(start))
	}
}

func TestParseParameter(t *testing.T) {
	p, err := catalog.ParseParameter("CH4")
	require.NoError(t, err)
	assert.Equal(t, "L2__CH4___", p.ProductType())

	p, err = catalog.ParseParameter("CO")
	require.NoError(t, err)
	assert.Equal(t, "L2__CO____", p.ProductType())

	_, err = catalog.ParseParameter("NO2")
	assert.Error(t, err)
	_, err = catalog.ParseParameter("ch4")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := catalog.ParseDate("20240315")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"2024-03-15", "20241315", "2024031", ""} {
		_, err := catalog.ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "S5P_OFFL_L2__CH4____20240315T010203.zip",
		catalog.ProductRecord{Title: "S5P_OFFL_L2__CH4____20240315T010203.nc"}.ArchiveName())
	// always the last three characters, whatever the extension length
	assert.Equal(t, "product..zip", catalog.ProductRecord{Title: "product.nc4"}.ArchiveName())
	assert.Equal(t, "abc.zip", catalog.ProductRecord{Title: "abcdef"}.ArchiveName())
	assert.Equal(t, ".zip", catalog.ProductRecord{Title: "ab"}.ArchiveName())
}

func TestQuery_SinglePage(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "2024-03-15T00:00:00.000Z", q.Get("startDate"))
		assert.Equal(t, "2024-03-15T23:59:59.999Z", q.Get("completionDate"))
		assert.Equal(t, "L2__CO____", q.Get("productType"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"type": "FeatureCollection", "features": features(5, 0)})
	}), 0)

	records, err := svc.Query(context.Background(), catalog.CO, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("id-%03d", i), r.ID)
		assert.Equal(t, fmt.Sprintf("S5P_OFFL_L2__CH4____%03d.nc", i), r.Title)
	}
}

func TestQuery_EmptyFeatures(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}), 0)

	records, err := svc.Query(context.Background(), catalog.CH4, time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestQuery_FollowsNextLinks(t *testing.T) {
	var srvURL string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		body := map[string]any{}
		switch page {
		case "":
			body["features"] = features(2, 0)
			body["properties"] = map[string]any{"links": []map[string]string{
				{"rel": "self", "href": srvURL + "/search.json"},
				{"rel": "next", "href": srvURL + "/search.json?page=2"},
			}}
		case "2":
			body["features"] = features(2, 2)
			body["properties"] = map[string]any{"links": []map[string]string{
				{"rel": "next", "href": srvURL + "/search.json?page=3"},
			}}
		case "3":
			body["features"] = features(1, 4)
		default:
			t.Errorf("unexpected page %q", page)
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	svc, err := catalog.NewCatalogService(context.Background(), config.Config{
		Catalog: config.CatalogConfig{SearchURL: srv.URL + "/search.json", MaxPages: 10},
	})
	require.NoError(t, err)

	records, err := svc.Query(context.Background(), catalog.CH4, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "id-000", records[0].ID)
	assert.Equal(t, "id-004", records[4].ID)

	// a single page reproduces the unpaged behaviour
	single, err := catalog.NewCatalogService(context.Background(), config.Config{
		Catalog: config.CatalogConfig{SearchURL: srv.URL + "/search.json", MaxPages: 1},
	})
	require.NoError(t, err)
	records, err = single.Query(context.Background(), catalog.CH4, time.Now())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "missing features", status: http.StatusOK, body: `{"type":"FeatureCollection"}`, wantErr: catalog.ErrNoFeatures},
		{name: "malformed json", status: http.StatusOK, body: `{"features":[`},
		{name: "server error", status: http.StatusBadGateway, body: `{"ErrorMessage":"down"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}), 0)

			records, err := svc.Query(context.Background(), catalog.CH4, time.Now())
			require.Error(t, err)
			assert.Nil(t, records)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.status != http.StatusOK {
				var respErr *config.ResponseError
				require.ErrorAs(t, err, &respErr)
				assert.Equal(t, tt.status, respErr.StatusCode)
			}
		})
	}
}
