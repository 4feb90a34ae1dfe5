// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"time"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/auth"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/catalog"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/transfer"
)

// ManifestName sits next to the extracted products; the dotted name keeps it apart from archive entries.
const ManifestName = ".tropomi-manifest.yaml"

type Request struct {
	Parameter   catalog.Parameter
	Date        time.Time
	Credentials auth.CredentialSource
}

// Manifest summarizes one run; it is written next to the extracted products.
type Manifest struct {
	RunID       string                     `json:"runId"                 yaml:"runId"`
	Parameter   catalog.Parameter          `json:"parameter"             yaml:"parameter"`
	ProductType string                     `json:"productType"           yaml:"productType"`
	Date        string                     `json:"date"                  yaml:"date"`
	OutputDir   string                     `json:"outputDir"             yaml:"outputDir"`
	StartedAt   time.Time                  `json:"startedAt"             yaml:"startedAt"`
	FinishedAt  time.Time                  `json:"finishedAt"            yaml:"finishedAt"`
	Records     int                        `json:"records"               yaml:"records"`
	Outcomes    []transfer.DownloadOutcome `json:"outcomes"              yaml:"outcomes"`
	Published   []string                   `json:"published,omitempty"   yaml:"published,omitempty"`
}

func (m *Manifest) Extracted() int {
	n := 0
	for _, o := range m.Outcomes {
		if o.Status == transfer.StatusExtracted {
			n++
		}
	}
	return n
}

func (m *Manifest) Failed() int {
	return len(m.Outcomes) - m.Extracted()
}

// Complete is true when every record found was extracted.
func (m *Manifest) Complete() bool {
	return m.Records > 0 && m.Extracted() == m.Records
}
