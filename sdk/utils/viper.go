// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/config"
)

// EnvPrefix: optional prefix for env lookup (e.g., "TROPOMI_OUTPUT_ROOT" -> "OUTPUT_ROOT")
const EnvPrefix = "TROPOMI"

// Config holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - default: optional default to set if key is unset
// - secret: "true" if sensitive, redacted by RedactedSettings
// - bind: "false" to NOT bind from env (we still can set defaults)
type Config struct {
	AuthTokenEndpoint   string `vkey:"auth_token_endpoint"   env:"AUTH_TOKEN_ENDPOINT"   default:"https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"`
	AuthIssuer          string `vkey:"auth_issuer"           env:"AUTH_ISSUER"`
	AuthClientId        string `vkey:"auth_client_id"        env:"AUTH_CLIENT_ID"        default:"cdse-public"`
	AuthGrantType       string `vkey:"auth_grant_type"       env:"AUTH_GRANT_TYPE"       default:"password"`
	AuthMaxAttempts     string `vkey:"auth_max_attempts"     env:"AUTH_MAX_ATTEMPTS"     default:"3"`
	CatalogSearchUrl    string `vkey:"catalog_search_url"    env:"CATALOG_SEARCH_URL"    default:"https://catalogue.dataspace.copernicus.eu/resto/api/collections/Sentinel5P/search.json"`
	CatalogMaxRecords   string `vkey:"catalog_max_records"   env:"CATALOG_MAX_RECORDS"`
	CatalogMaxPages     string `vkey:"catalog_max_pages"     env:"CATALOG_MAX_PAGES"     default:"50"`
	DownloadUrlTemplate string `vkey:"download_url_template" env:"DOWNLOAD_URL_TEMPLATE" default:"https://download.dataspace.copernicus.eu/odata/v1/Products(%s)/$value"`
	HttpTimeout         string `vkey:"http_timeout"          env:"HTTP_TIMEOUT"          default:"0s"`
	OutputRoot          string `vkey:"output_root"           env:"OUTPUT_ROOT"           default:"."`
	OutputPrefix        string `vkey:"output_prefix"         env:"OUTPUT_PREFIX"         default:"tropomi_download_"`
	S3Bucket            string `vkey:"s3_bucket"             env:"S3_BUCKET"`
	S3Prefix            string `vkey:"s3_prefix"             env:"S3_PREFIX"`
	AwsAccessKeyID      string `vkey:"aws_access_key_id"     env:"AWS_ACCESS_KEY_ID"     secret:"true"`
	AwsSecretAccessKey  string `vkey:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY" secret:"true"`
	AwsSessionToken     string `vkey:"aws_session_token"     env:"AWS_SESSION_TOKEN"     secret:"true"`
	AwsRegion           string `vkey:"aws_region"            env:"AWS_REGION"            default:"us-east-1"`
	AwsEndpointURL      string `vkey:"aws_endpoint_url"      env:"AWS_ENDPOINT_URL"`
	LogLevel            string `vkey:"log_level"             env:"LOG_LEVEL"             default:"info"`
	PushgatewayUrl      string `vkey:"pushgateway_url"       env:"PUSHGATEWAY_URL"`
	PushgatewayJob      string `vkey:"pushgateway_job"       env:"PUSHGATEWAY_JOB"       default:"tropomi_download"`
	CurrentEnvironment  string `vkey:"current_environment"   env:"CURRENT_ENVIRONMENT"   bind:"false"`
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return "default"
}

// mirror PREFIX_FOO -> FOO (optional)
func mirrorPrefix(prefix string) {
	if prefix == "" {
		return
	}
	upPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) != 2 {
			continue
		}
		name, val := kv[0], kv[1]
		if strings.HasPrefix(name, upPrefix) {
			unpref := strings.TrimPrefix(name, upPrefix)
			if os.Getenv(unpref) == "" {
				_ = os.Setenv(unpref, val)
			}
		}
	}
}

// BindEnvFromStruct binds env for all fields of Config using struct tags.
func BindEnvFromStruct(v *viper.Viper, prefix string) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	mirrorPrefix(prefix)

	rt := reflect.TypeOf(Config{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)

		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}

		if def := f.Tag.Get("default"); def != "" {
			v.SetDefault(key, def)
		}

		// if false not to bind
		if f.Tag.Get("bind") == "false" {
			continue
		}

		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		_ = v.BindEnv(key, env)
	}
}

// Load [DEFAULT] + [env] into Viper (TOML in-memory). ENV can still override on Get().
// The credentials section is never merged: it is read by the credential source only.
func loadIniSectionIntoViper(v *viper.Viper, cfg *ini.File, env string) error {
	def := cfg.Section(ini.DefaultSection)
	selected := def
	if env != "" && cfg.HasSection(env) && env != CredentialsSection {
		selected = cfg.Section(env)
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, val := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(val, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	v.SetConfigType("toml")
	return v.ReadConfig(&buf)
}

// RegisterIniCfgWithViper:
// 1) load .env files (missing ones are ignored)
// 2) bind ENV from struct
// 3) load the INI at iniPath (or ~/.copernicus_auth.ini) and merge the active section
//
// A missing INI is not an error: settings then come from env and defaults.
func RegisterIniCfgWithViper(v *viper.Viper, iniPath string, optionalEnv ...string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	BindEnvFromStruct(v, EnvPrefix)

	if iniPath == "" {
		iniPath = GetIniPath()
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, iniPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.Set(CurrentEnvironment, resolveEnvName(optionalEnv...))
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", iniPath, err)
	}

	// active env: --env > DEFAULT.current_environment > default
	env := resolveEnvName(optionalEnv...)
	if env == "default" {
		if val := cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).String(); val != "" {
			env = val
		}
	}

	if err := loadIniSectionIntoViper(v, cfg, env); err != nil {
		return fmt.Errorf("failed to load INI into viper: %w", err)
	}
	v.Set(CurrentEnvironment, env)
	return nil
}

// SDKConfig turns the viper settings into the SDK config struct.
func SDKConfig(v *viper.Viper) (config.Config, error) {
	timeout, err := time.ParseDuration(v.GetString(HttpTimeout))
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid %s: %w", HttpTimeout, err)
	}

	tokenEndpoint := v.GetString(AuthTokenEndpoint)
	if tokenEndpoint == "" && v.GetString(AuthIssuer) == "" {
		tokenEndpoint = DefaultTokenEndpoint
	}
	searchURL := v.GetString(CatalogSearchUrl)
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}

	return config.Config{
		Auth: config.AuthConfig{
			TokenEndpoint: tokenEndpoint,
			Issuer:        v.GetString(AuthIssuer),
			ClientID:      v.GetString(AuthClientId),
			GrantType:     v.GetString(AuthGrantType),
			MaxAttempts:   v.GetInt(AuthMaxAttempts),
		},
		Catalog: config.CatalogConfig{
			SearchURL:  searchURL,
			MaxRecords: v.GetInt(CatalogMaxRecords),
			MaxPages:   v.GetInt(CatalogMaxPages),
		},
		Core: config.CoreConfig{
			DownloadURLTemplate: v.GetString(DownloadUrlTemplate),
			Timeout:             timeout,
			UserAgent:           UserAgent,
		},
		S3: config.S3Config{
			Bucket:      v.GetString(S3Bucket),
			Prefix:      v.GetString(S3Prefix),
			AccessKey:   v.GetString(AwsAccessKeyID),
			SecretKey:   v.GetString(AwsSecretKey),
			AccessToken: v.GetString(AwsSession),
			Region:      v.GetString(AwsRegion),
			EndpointURL: v.GetString(AwsEndpointURL),
		},
		Output: config.OutputConfig{
			Root:   v.GetString(OutputRoot),
			Prefix: v.GetString(OutputPrefix),
		},
	}, nil
}

// RedactedSettings returns every known key with secrets masked, for debug logging.
func RedactedSettings(v *viper.Viper) map[string]string {
	out := map[string]string{}
	rt := reflect.TypeOf(Config{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key := f.Tag.Get("vkey")
		val := v.GetString(key)
		if val != "" && f.Tag.Get("secret") == "true" {
			val = "****"
		}
		out[key] = val
	}
	return out
}
