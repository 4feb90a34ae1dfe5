// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Command tropomi-download fetches every Sentinel-5P TROPOMI product of one day and one
// parameter from the Copernicus Data Space Ecosystem and extracts it locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/auth"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/catalog"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/services/pipeline"
	"github.com/scc-digitalhub/tropomi-cli-sdk/sdk/utils"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitPartial = 3
)

type options struct {
	configPath  string
	env         string
	prompt      bool
	output      string
	maxPages    int
	maxAttempts int
	verbose     bool
	logLevel    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("tropomi-download", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tropomi-download [flags] <CH4|CO> <YYYYMMDD>")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "credentials/config INI (default ~/"+utils.IniName+")")
	fs.StringVar(&opts.env, "env", "", "INI section overlaid on [DEFAULT]")
	fs.BoolVar(&opts.prompt, "prompt", false, "ask for username and password on the terminal")
	fs.StringVarP(&opts.output, "output", "o", "", "root directory for extracted products")
	fs.IntVar(&opts.maxPages, "max-pages", 0, "catalog pages to follow (0 keeps the configured value)")
	fs.IntVar(&opts.maxAttempts, "max-attempts", 0, "authentication attempts (0 keeps the configured value)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "show download progress")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		fs.Usage()
		return exitUsage
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}
	param, err := catalog.ParseParameter(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fs.Usage()
		return exitUsage
	}
	date, err := catalog.ParseDate(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fs.Usage()
		return exitUsage
	}

	v := viper.New()
	iniPath := utils.ExpandHome(opts.configPath)
	if iniPath == "" {
		iniPath = utils.GetIniPath()
	}
	if err := utils.RegisterIniCfgWithViper(v, iniPath, opts.env); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	applyOverrides(v, opts)

	utils.InitLogger(v.GetString(utils.LogLevel), false)
	defer utils.Sync()
	log := utils.L()
	log.Debug("settings", zap.Any("config", utils.RedactedSettings(v)))

	conf, err := utils.SDKConfig(v)
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return exitFailure
	}
	conf.Output.Verbose = opts.verbose

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := utils.NewMetrics()
	pOpts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics),
	}
	if conf.Output.Verbose {
		pOpts = append(pOpts, pipeline.WithProgress(stderr))
	}
	p := pipeline.New(conf, pOpts...)
	utils.Infof("Downloading %s products for %s (run %s)", param.ProductType(), date.Format(catalog.DateLayout), p.RunID())

	m, err := p.Run(ctx, pipeline.Request{
		Parameter:   param,
		Date:        date,
		Credentials: credentialSource(opts, iniPath),
	})

	if url := v.GetString(utils.PushgatewayUrl); url != "" {
		if perr := metrics.Push(ctx, url, v.GetString(utils.PushgatewayJobKey), p.RunID()); perr != nil {
			log.Warn("metrics push failed", zap.Error(perr))
		}
	}

	if err != nil {
		log.Error("download failed", zap.Error(err))
		return exitFailure
	}
	fmt.Fprintf(stdout, "%s: %d/%d products extracted to %s\n", m.Date, m.Extracted(), m.Records, m.OutputDir)
	if m.Failed() > 0 {
		utils.Warnf("%d products could not be downloaded, see %s", m.Failed(), pipeline.ManifestName)
		return exitPartial
	}
	return exitOK
}

// applyOverrides lets explicit flags win over INI, env and defaults.
func applyOverrides(v *viper.Viper, opts options) {
	if opts.output != "" {
		v.Set(utils.OutputRoot, opts.output)
	}
	if opts.maxPages > 0 {
		v.Set(utils.CatalogMaxPages, strconv.Itoa(opts.maxPages))
	}
	if opts.maxAttempts > 0 {
		v.Set(utils.AuthMaxAttempts, strconv.Itoa(opts.maxAttempts))
	}
	if opts.logLevel != "" {
		v.Set(utils.LogLevel, opts.logLevel)
	}
}

// credentialSource: COPERNICUS_USERNAME/COPERNICUS_PASSWORD, then --prompt, then the INI file.
func credentialSource(opts options, iniPath string) auth.CredentialSource {
	user, pass := os.Getenv("COPERNICUS_USERNAME"), os.Getenv("COPERNICUS_PASSWORD")
	switch {
	case user != "" && pass != "":
		return auth.StaticCredentials(user, pass)
	case opts.prompt:
		return auth.NewPromptCredentials(os.Stdin, os.Stderr)
	default:
		return auth.IniCredentials{Path: iniPath}
	}
}
