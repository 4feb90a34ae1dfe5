// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
)

// ErrUnsafePath: an archive entry would land outside the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// FetchError is a non-200 answer of the download endpoint.
type FetchError struct {
	Filename   string
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to download: %s from %s (status code: %d)", e.Filename, e.URL, e.StatusCode)
}

type OutcomeStatus string

const (
	StatusExtracted OutcomeStatus = "extracted"
	StatusFailed    OutcomeStatus = "failed"
)

// DownloadOutcome is the per-record result of a run.
type DownloadOutcome struct {
	ID         string        `json:"id"                   yaml:"id"`
	Title      string        `json:"title"                yaml:"title"`
	Filename   string        `json:"filename"             yaml:"filename"`
	URL        string        `json:"url"                  yaml:"url"`
	Status     OutcomeStatus `json:"status"               yaml:"status"`
	StatusCode int           `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Size       int           `json:"size,omitempty"       yaml:"size,omitempty"`
	Files      []string      `json:"files,omitempty"      yaml:"files,omitempty"`
	Error      string        `json:"error,omitempty"      yaml:"error,omitempty"`
	Body       string        `json:"body,omitempty"       yaml:"body,omitempty"`
}
