// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import "time"

// Config complessiva passata all’SDK (niente viper/INI qui)
type Config struct {
	Auth    AuthConfig
	Catalog CatalogConfig
	Core    CoreConfig
	S3      S3Config
	Output  OutputConfig
}

type AuthConfig struct {
	TokenEndpoint string
	Issuer        string
	ClientID      string
	GrantType     string
	MaxAttempts   int
}

type CatalogConfig struct {
	SearchURL  string
	MaxRecords int
	MaxPages   int
}

// CoreConfig describes the shared HTTP session used by the catalog and the download endpoint.
type CoreConfig struct {
	DownloadURLTemplate string
	AccessToken         string
	Timeout             time.Duration
	UserAgent           string
}

type S3Config struct {
	Bucket      string
	Prefix      string
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
}

// Enabled reports whether extracted products should be published to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type OutputConfig struct {
	Root    string
	Prefix  string
	Verbose bool
}
