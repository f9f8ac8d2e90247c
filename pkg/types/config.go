// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for calls to the OCR service.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. Zero means no timeout; the
	// pipeline itself never imposes one.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "mistral-ocr/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// OCRConfig holds settings for the remote OCR client.
type OCRConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIBase is the service root, e.g. "https://api.mistral.ai/v1".
	APIBase string `json:"api_base" yaml:"api_base"`

	// Model is the OCR model identifier (default "mistral-ocr-latest").
	Model string `json:"model" yaml:"model"`

	// ExpiryHours is the lifetime of the signed document URL (default 1).
	ExpiryHours int `json:"expiry_hours" yaml:"expiry_hours"`
}

// OutputConfig holds settings for the output store.
type OutputConfig struct {
	// Root is the directory under which run directories are created
	// (default "outputs").
	Root string `json:"root" yaml:"root"`

	// Manifest enables writing run.yaml into every run directory.
	Manifest bool `json:"manifest" yaml:"manifest"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Pretty     bool   `json:"pretty" yaml:"pretty"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// Config groups all settings of the tool.
type Config struct {
	OCR    OCRConfig    `json:"ocr" yaml:"ocr"`
	Output OutputConfig `json:"output" yaml:"output"`
	Log    LogConfig    `json:"log" yaml:"log"`
}
