// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenNotFound: the token endpoint answered 200 but carried no access_token.
	ErrTokenNotFound = errors.New("token not found in the response")
	// ErrAuthExhausted: every allowed attempt was rejected.
	ErrAuthExhausted = errors.New("authentication failed")
)

type Credentials struct {
	Username string
	Password string
}

// Token is the subset of the OpenID Connect token response we look at.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// AuthError is a non-200 answer of the token endpoint.
type AuthError struct {
	StatusCode  int
	Description string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to obtain authentication token (status %d): %s", e.StatusCode, e.Description)
}
