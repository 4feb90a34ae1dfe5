// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/auth"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/catalog"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/pipeline"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/transfer"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeCDSE serves token, search and download endpoints. products maps ids to archive
// bytes; ids missing from it answer 404.
type fakeCDSE struct {
	srv       *httptest.Server
	records   []map[string]any
	products  map[string][]byte
	tokenPost int32
	downloads int32
}

func newFakeCDSE(t *testing.T, ids []string, products map[string][]byte) *fakeCDSE {
	t.Helper()
	f := &fakeCDSE{products: products, records: []map[string]any{}}
	for _, id := range ids {
		f.records = append(f.records, map[string]any{
			"id":         id,
			"properties": map[string]any{"title": "S5P_OFFL_" + id + ".nc"},
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenPost, 1)
		_, _ = w.Write([]byte(`{"access_token":"tok-xyz"}`))
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "L2__CH4___", r.URL.Query().Get("productType"))
		assert.Equal(t, "2024-03-15T00:00:00.000Z", r.URL.Query().Get("startDate"))
		_ = json.NewEncoder(w).Encode(map[string]any{"features": f.records})
	})
	mux.HandleFunc("/odata/v1/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.downloads, 1)
		assert.Equal(t, "Bearer tok-xyz", r.Header.Get("Authorization"))
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/odata/v1/Products("), ")/$value")
		data, ok := f.products[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("no such product"))
			return
		}
		_, _ = w.Write(data)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCDSE) config(root string) config.Config {
	return config.Config{
		Auth:    config.AuthConfig{TokenEndpoint: f.srv.URL + "/token", MaxAttempts: 3},
		Catalog: config.CatalogConfig{SearchURL: f.srv.URL + "/search.json", MaxPages: 1},
		Core:    config.CoreConfig{DownloadURLTemplate: f.srv.URL + "/odata/v1/Products(%s)/$value"},
		Output:  config.OutputConfig{Root: root, Prefix: utils.DefaultOutputPrefix},
	}
}

func request() pipeline.Request {
	return pipeline.Request{
		Parameter:   catalog.CH4,
		Date:        day,
		Credentials: auth.StaticCredentials("alice", "s3cret"),
	}
}

func TestOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "tropomi_download_L2__CO_____20240315"),
		pipeline.OutputDir(config.OutputConfig{Root: "/data"}, "L2__CO____", day))
	assert.Equal(t, "x_L2__CH4____20240315",
		pipeline.OutputDir(config.OutputConfig{Prefix: "x_"}, "L2__CH4___", day))
}

func TestRun_ExtractsEveryProduct(t *testing.T) {
	f := newFakeCDSE(t, []string{"p1", "p2"}, map[string][]byte{
		"p1": zipBytes(t, map[string]string{"a.txt": "first"}),
		"p2": zipBytes(t, map[string]string{"dir/b.txt": "second"}),
	})
	root := t.TempDir()

	p := pipeline.New(f.config(root), pipeline.WithHTTPClient(f.srv.Client()), pipeline.WithRunID("run-1"))
	m, err := p.Run(context.Background(), request())
	require.NoError(t, err)

	assert.True(t, m.Complete())
	assert.Equal(t, 2, m.Records)
	assert.Equal(t, 2, m.Extracted())
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenPost))

	outDir := filepath.Join(root, "tropomi_download_L2__CH4____20240315")
	assert.Equal(t, outDir, m.OutputDir)

	got, err := os.ReadFile(filepath.Join(outDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	got, err = os.ReadFile(filepath.Join(outDir, "dir", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	raw, err := os.ReadFile(filepath.Join(outDir, pipeline.ManifestName))
	require.NoError(t, err)
	var stored pipeline.Manifest
	require.NoError(t, yaml.Unmarshal(raw, &stored))
	assert.Equal(t, "run-1", stored.RunID)
	assert.Equal(t, "L2__CH4___", stored.ProductType)
	assert.Equal(t, "20240315", stored.Date)
	require.Len(t, stored.Outcomes, 2)
	assert.Equal(t, "S5P_OFFL_p1.zip", stored.Outcomes[0].Filename)
	assert.Equal(t, transfer.StatusExtracted, stored.Outcomes[1].Status)
}

func TestRun_SkipsFailedDownloads(t *testing.T) {
	f := newFakeCDSE(t, []string{"missing", "p2"}, map[string][]byte{
		"p2": zipBytes(t, map[string]string{"b.txt": "ok"}),
	})
	root := t.TempDir()

	m, err := pipeline.New(f.config(root), pipeline.WithHTTPClient(f.srv.Client())).Run(context.Background(), request())
	require.NoError(t, err)

	assert.False(t, m.Complete())
	assert.Equal(t, 1, m.Failed())
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.downloads))

	failed := m.Outcomes[0]
	assert.Equal(t, transfer.StatusFailed, failed.Status)
	assert.Equal(t, http.StatusNotFound, failed.StatusCode)
	assert.Equal(t, "no such product", failed.Body)
	assert.Contains(t, failed.URL, "Products(missing)")

	assert.FileExists(t, filepath.Join(m.OutputDir, "b.txt"))
	assert.FileExists(t, filepath.Join(m.OutputDir, pipeline.ManifestName))
}

func TestRun_ManifestLeavesArchiveEntriesAlone(t *testing.T) {
	f := newFakeCDSE(t, []string{"p1"}, map[string][]byte{
		"p1": zipBytes(t, map[string]string{"manifest.yaml": "from the product"}),
	})

	m, err := pipeline.New(f.config(t.TempDir()), pipeline.WithHTTPClient(f.srv.Client())).Run(context.Background(), request())
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(m.OutputDir, "manifest.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from the product", string(got))
	assert.FileExists(t, filepath.Join(m.OutputDir, pipeline.ManifestName))
}

func TestRun_NoProducts(t *testing.T) {
	f := newFakeCDSE(t, nil, nil)
	root := t.TempDir()

	m, err := pipeline.New(f.config(root), pipeline.WithHTTPClient(f.srv.Client())).Run(context.Background(), request())
	require.NoError(t, err)
	assert.Zero(t, m.Records)
	assert.False(t, m.Complete())
	assert.Zero(t, atomic.LoadInt32(&f.downloads))
	assert.NoDirExists(t, m.OutputDir)
}

func TestRun_CorruptArchiveAborts(t *testing.T) {
	f := newFakeCDSE(t, []string{"bad", "never"}, map[string][]byte{
		"bad":   []byte("<html>maintenance</html>"),
		"never": zipBytes(t, map[string]string{"c.txt": "c"}),
	})

	m, err := pipeline.New(f.config(t.TempDir()), pipeline.WithHTTPClient(f.srv.Client())).Run(context.Background(), request())
	require.Error(t, err)
	require.NotNil(t, m)
	require.Len(t, m.Outcomes, 1)
	assert.Equal(t, transfer.StatusFailed, m.Outcomes[0].Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.downloads))
}

func TestRun_AuthExhaustedStopsBeforeSearch(t *testing.T) {
	var searches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_description":"Invalid user credentials"}`))
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searches, 1)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	conf := config.Config{
		Auth:    config.AuthConfig{TokenEndpoint: srv.URL + "/token", MaxAttempts: 2},
		Catalog: config.CatalogConfig{SearchURL: srv.URL + "/search.json"},
	}
	_, err := pipeline.New(conf, pipeline.WithHTTPClient(srv.Client())).Run(context.Background(), request())
	assert.ErrorIs(t, err, auth.ErrAuthExhausted)
	assert.Zero(t, atomic.LoadInt32(&searches))
}

func TestRun_RequiresCredentials(t *testing.T) {
	req := request()
	req.Credentials = nil
	_, err := pipeline.New(config.Config{}).Run(context.Background(), req)
	assert.Error(t, err)
}
