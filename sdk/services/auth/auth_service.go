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
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

type AuthService struct {
	conf       config.AuthConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *utils.Metrics
}

type Option func(*AuthService)

func WithHTTPClient(c *http.Client) Option {
	return func(s *AuthService) { s.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *AuthService) { s.logger = l }
}

func WithMetrics(m *utils.Metrics) Option {
	return func(s *AuthService) { s.metrics = m }
}

func NewAuthService(_ context.Context, conf config.Config, opts ...Option) (*AuthService, error) {
	if conf.Auth.TokenEndpoint == "" && conf.Auth.Issuer == "" {
		return nil, errors.New("invalid auth config: token endpoint or issuer required")
	}
	s := &AuthService{conf: conf.Auth}
	for _, opt := range opts {
		opt(s)
	}
	if s.conf.ClientID == "" {
		s.conf.ClientID = utils.DefaultClientID
	}
	if s.conf.GrantType == "" {
		s.conf.GrantType = utils.DefaultGrantType
	}
	if s.conf.MaxAttempts < 1 {
		s.conf.MaxAttempts = 1
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Authenticate exchanges credentials for a bearer token. Credentials are pulled from src
// again before every attempt. Rejections (non-200, or 200 without a token) are retried
// up to MaxAttempts times in total; transport and credential-source failures are not.
func (s *AuthService) Authenticate(ctx context.Context, src CredentialSource) (string, error) {
	endpoint, err := s.tokenEndpoint(ctx)
	if err != nil {
		return "", err
	}

	var (
		token    string
		attempts int
		rejected bool
	)
	op := func() error {
		attempts++
		creds, err := src.Credentials(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("reading credentials: %w", err))
		}

		tok, err := s.RequestToken(ctx, endpoint, creds)
		var authErr *AuthError
		switch {
		case err == nil:
			token = tok.AccessToken
			s.metrics.AuthAttempt("success")
			s.logger.Info("authentication token retrieved", zap.Int("attempt", attempts))
			return nil
		case errors.Is(err, ErrTokenNotFound):
			rejected = true
			s.metrics.AuthAttempt("no_token")
			s.logger.Warn("token not found in the response", zap.Int("attempt", attempts))
			return err
		case errors.As(err, &authErr):
			rejected = true
			s.metrics.AuthAttempt("rejected")
			s.logger.Warn("failed to obtain authentication token",
				zap.Int("attempt", attempts),
				zap.Int("status", authErr.StatusCode),
				zap.String("error", authErr.Description))
			return err
		default:
			s.metrics.AuthAttempt("error")
			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(s.conf.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if rejected && attempts >= s.conf.MaxAttempts {
			return "", fmt.Errorf("%w after %d attempts: %w", ErrAuthExhausted, attempts, err)
		}
		return "", err
	}
	return token, nil
}

// RequestToken performs a single password-grant exchange against endpoint.
func (s *AuthService) RequestToken(ctx context.Context, endpoint string, creds Credentials) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", s.conf.ClientID)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("grant_type", s.conf.GrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		desc := config.ErrorMessage(body)
		if desc == "" {
			desc = resp.Status
		}
		return nil, &AuthError{StatusCode: resp.StatusCode, Description: desc}
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenNotFound, err)
	}
	if tok.AccessToken == "" {
		return nil, ErrTokenNotFound
	}
	return &tok, nil
}

func (s *AuthService) tokenEndpoint(ctx context.Context) (string, error) {
	if s.conf.TokenEndpoint != "" {
		return s.conf.TokenEndpoint, nil
	}
	endpoint, err := Discover(ctx, s.httpClient, s.conf.Issuer)
	if err != nil {
		return "", fmt.Errorf("token endpoint discovery failed: %w", err)
	}
	s.logger.Debug("discovered token endpoint", zap.String("issuer", s.conf.Issuer), zap.String("endpoint", endpoint))
	s.conf.TokenEndpoint = endpoint
	return endpoint, nil
}
