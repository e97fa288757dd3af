// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvPort          = "CARSURVEY_PORT"
	EnvLogLevel      = "CARSURVEY_LOG_LEVEL"
	EnvTraceExporter = "OTEL_TRACES_EXPORTER"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

var validate = validator.New()

// Load reads the config at path on top of DefaultConfig, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (CarSurveyConfig, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (CarSurveyConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read the config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decode unmarshals YAML into cfg, rejecting unknown keys.
func decode(data []byte, cfg *CarSurveyConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *CarSurveyConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvTraceExporter); ok && v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok && v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// Validate checks field constraints on cfg.
func Validate(cfg CarSurveyConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML, for `carsurvey config` style dumps.
func Marshal(cfg CarSurveyConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}
