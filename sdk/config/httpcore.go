// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultDownloadURLTemplate = "https://download.dataspace.copernicus.eu/odata/v1/Products(%s)/$value"

type CoreHTTP interface {
	BuildURL(base string, params map[string]string) string
	DownloadURL(id string) string
	Do(ctx context.Context, method, url string, data []byte) ([]byte, int, error)
	Stream(ctx context.Context, url string) (*http.Response, error)
	WithAccessToken(token string) CoreHTTP
}

// ResponseError is returned by Do for any non-200 answer. Body holds the raw response text.
type ResponseError struct {
	StatusCode int
	Status     string
	Message    string
	Body       []byte
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server responded with: %s - %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server responded with: %s", e.Status)
}

type httpCore struct {
	httpClient *http.Client
	coreConfig CoreConfig
}

// NewHTTPCore wraps httpClient as the run's session. The same client, and so the
// same connection pool, is shared by every value derived through WithAccessToken.
func NewHTTPCore(httpClient *http.Client, coreConfig CoreConfig) CoreHTTP {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: coreConfig.Timeout}
	}
	if coreConfig.DownloadURLTemplate == "" {
		coreConfig.DownloadURLTemplate = DefaultDownloadURLTemplate
	}
	return &httpCore{httpClient: httpClient, coreConfig: coreConfig}
}

func (hc *httpCore) WithAccessToken(token string) CoreHTTP {
	cc := hc.coreConfig
	cc.AccessToken = token
	return &httpCore{httpClient: hc.httpClient, coreConfig: cc}
}

func (hc *httpCore) BuildURL(base string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	if len(q) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func (hc *httpCore) DownloadURL(id string) string {
	return fmt.Sprintf(hc.coreConfig.DownloadURLTemplate, id)
}

func (hc *httpCore) newRequest(ctx context.Context, method, url string, data []byte) (*http.Request, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ua := hc.coreConfig.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	// If access token is set, add Authorization header
	if tok := hc.coreConfig.AccessToken; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (hc *httpCore) Do(ctx context.Context, method, url string, data []byte) ([]byte, int, error) {
	req, err := hc.newRequest(ctx, method, url, data)
	if err != nil {
		return nil, 0, err
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	b, rerr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return b, resp.StatusCode, &ResponseError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    ErrorMessage(b),
			Body:       b,
		}
	}
	return b, resp.StatusCode, rerr
}

// Stream performs an authenticated GET and hands back the open response whatever its status.
// The caller owns resp.Body.
func (hc *httpCore) Stream(ctx context.Context, url string) (*http.Response, error) {
	req, err := hc.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return hc.httpClient.Do(req)
}

// ErrorMessage pulls a human readable message out of a JSON error body, if any.
func ErrorMessage(body []byte) string {
	var m map[string]any
	if json.Unmarshal(body, &m) != nil {
		return ""
	}
	for _, key := range []string{"error_description", "detail", "message", "error"} {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}
