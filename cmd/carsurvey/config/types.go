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
	"time"

	"github.com/AleutianAI/CarSurvey/pkg/logging"
	"github.com/AleutianAI/CarSurvey/services/survey"
	"github.com/AleutianAI/CarSurvey/services/survey/form"
	"github.com/AleutianAI/CarSurvey/services/survey/telemetry"
)

type CarSurveyConfig struct {
	// Server: HTTP listener settings
	Server ServerConfig `yaml:"server"`

	// Submit: simulated save behaviour
	Submit SubmitConfig `yaml:"submit"`

	// Sessions: registry limits and idle eviction
	Sessions SessionsConfig `yaml:"sessions"`

	// RateLimit: per-process request throttling, rps 0 disables it
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Telemetry: trace exporter selection
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Log: level, format and optional log file
	Log logging.Config `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	GinMode         string        `yaml:"gin_mode" validate:"oneof=release debug test"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type SubmitConfig struct {
	SaveLatency time.Duration `yaml:"save_latency" validate:"gt=0"` // e.g. 1s
}

type SessionsConfig struct {
	MaxSessions   int           `yaml:"max_sessions" validate:"min=1"`
	IdleTTL       time.Duration `yaml:"idle_ttl" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() CarSurveyConfig {
	return CarSurveyConfig{
		Server: ServerConfig{
			Port:            12400,
			GinMode:         "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Submit: SubmitConfig{
			SaveLatency: form.DefaultSaveLatency,
		},
		Sessions: SessionsConfig{
			MaxSessions:   form.DefaultMaxSessions,
			IdleTTL:       form.DefaultIdleTTL,
			SweepInterval: form.DefaultSweepInterval,
		},
		RateLimit: RateLimitConfig{
			RPS:   50,
			Burst: 100,
		},
		Telemetry: telemetry.DefaultConfig(),
		Log: logging.Config{
			Level:   "info",
			Format:  logging.FormatJSON,
			Service: "carsurvey",
		},
	}
}

// ServiceConfig converts the file configuration into the service's options.
func (c CarSurveyConfig) ServiceConfig() survey.Config {
	return survey.Config{
		Port:            c.Server.Port,
		GinMode:         c.Server.GinMode,
		SaveLatency:     c.Submit.SaveLatency,
		MaxSessions:     c.Sessions.MaxSessions,
		IdleTTL:         c.Sessions.IdleTTL,
		SweepInterval:   c.Sessions.SweepInterval,
		RateLimitRPS:    c.RateLimit.RPS,
		RateLimitBurst:  c.RateLimit.Burst,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		Telemetry:       c.Telemetry,
	}
}
