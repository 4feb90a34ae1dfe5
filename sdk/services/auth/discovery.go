// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Discover reads <issuer>/.well-known/openid-configuration and returns its token_endpoint.
func Discover(ctx context.Context, httpClient *http.Client, issuer string) (string, error) {
	if issuer == "" {
		return "", errors.New("issuer not specified")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	configURL := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("issuer returned a non-200 status code: %v", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var oidc struct {
		TokenEndpoint string `json:"token_endpoint"`
	}
	if err := json.Unmarshal(body, &oidc); err != nil {
		return "", err
	}
	if oidc.TokenEndpoint == "" {
		return "", errors.New("token_endpoint missing from openid configuration")
	}
	return oidc.TokenEndpoint, nil
}
