// Filmledger - Movie Metadata Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filmledger

package main

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr error
	}{
		{name: "run", args: []string{"run"}, want: options{command: "run"}},
		{name: "reconcile with config", args: []string{"-config", "f.yaml", "reconcile"}, want: options{configPath: "f.yaml", command: "reconcile"}},
		{name: "serve", args: []string{"serve"}, want: options{command: "serve"}},
		{name: "no command", args: nil, wantErr: errUsage},
		{name: "two commands", args: []string{"run", "serve"}, wantErr: errUsage},
		{name: "unknown command", args: []string{"migrate"}, wantErr: errUsage},
		{name: "help", args: []string{"-h"}, wantErr: flag.ErrHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseArgs(tt.args, &stderr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseArgs() error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(stderr.String(), "usage: filmledger") {
					t.Errorf("usage not printed, stderr = %q", stderr.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRealMain_BadUsage(t *testing.T) {
	if code := realMain([]string{"bogus"}); code != 2 {
		t.Errorf("realMain() = %d, want 2", code)
	}
}
