// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".copernicus_auth.ini"
	CredentialsSection = "credentials"
	CurrentEnvironment = "current_environment"

	AuthTokenEndpoint = "auth_token_endpoint"
	AuthIssuer        = "auth_issuer"
	AuthClientId      = "auth_client_id"
	AuthGrantType     = "auth_grant_type"
	AuthMaxAttempts   = "auth_max_attempts"
	Username          = "username"
	Password          = "password"

	CatalogSearchUrl  = "catalog_search_url"
	CatalogMaxRecords = "catalog_max_records"
	CatalogMaxPages   = "catalog_max_pages"

	DownloadUrlTemplate = "download_url_template"
	HttpTimeout         = "http_timeout"

	OutputRoot   = "output_root"
	OutputPrefix = "output_prefix"

	S3Bucket       = "s3_bucket"
	S3Prefix       = "s3_prefix"
	AwsAccessKeyID = "aws_access_key_id"
	AwsSecretKey   = "aws_secret_access_key"
	AwsSession     = "aws_session_token"
	AwsRegion      = "aws_region"
	AwsEndpointURL = "aws_endpoint_url"

	LogLevel          = "log_level"
	PushgatewayUrl    = "pushgateway_url"
	PushgatewayJobKey = "pushgateway_job"
)

const (
	DefaultTokenEndpoint = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	DefaultSearchURL     = "https://catalogue.dataspace.copernicus.eu/resto/api/collections/Sentinel5P/search.json"
	DefaultClientID      = "cdse-public"
	DefaultGrantType     = "password"
	DefaultOutputPrefix  = "tropomi_download_"
	UserAgent            = "tropomi-cli-sdk"
)
