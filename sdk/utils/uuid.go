// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import "github.com/google/uuid"

// NewRunID tags one invocation in logs, metrics and the manifest.
func NewRunID() string {
	return uuid.NewString()
}
