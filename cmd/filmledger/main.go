// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/filmledger/internal/config"
	"github.com/tomtom215/filmledger/internal/logging"
)

const usage = `usage: filmledger [-config path] <command>

commands:
  run        crawl, fetch and load new records once
  reconcile  load cached records without touching the network
  serve      run on a schedule and expose the status API
`

var errUsage = errors.New("invalid usage")

type options struct {
	configPath string
	command    string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("filmledger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errUsage
	}
	switch opts.command = fs.Arg(0); opts.command {
	case "run", "reconcile", "serve":
		return opts, nil
	default:
		fs.Usage()
		return opts, fmt.Errorf("%w: unknown command %q", errUsage, opts.command)
	}
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize pipeline")
		return 1
	}
	defer p.Close()

	switch opts.command {
	case "serve":
		err = serve(ctx, cfg, p)
	case "reconcile":
		_, err = p.orchestrator.Reconcile(ctx)
	default:
		_, err = p.orchestrator.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Str("command", opts.command).Msg("Command failed")
		return 1
	}
	return 0
}
