// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mistral-ocr CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mistral-ocr/internal/logger"
	"github.com/pdiddy/mistral-ocr/internal/mistral"
	"github.com/pdiddy/mistral-ocr/internal/output"
	"github.com/pdiddy/mistral-ocr/internal/secrets"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the mistral-ocr CLI.
var rootCmd = &cobra.Command{
	Use:   "mistral-ocr",
	Short: "OCR PDFs and images into Markdown with the Mistral OCR service",
	Long: `mistral-ocr submits PDF or image files to the Mistral OCR service and
rebuilds each response into one Markdown document. Every file gets its own
timestamped directory under outputs/ holding the original, the converted PDF
for image inputs, the extracted images and complete.md.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		return logger.Init(logger.Options{
			Level:      cfg.Log.Level,
			Pretty:     cfg.Log.Pretty,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./mistral-ocr.yaml or ~/.config/mistral-ocr/config.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", true, "human-readable console logs instead of JSON")
	pf.String("log-file", "", "also write JSON logs to this rotating file")

	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.pretty", pf.Lookup("log-pretty"))
	_ = viper.BindPFlag("log.file", pf.Lookup("log-file"))
}

func initConfig() {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mistral-ocr")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mistral-ocr"))
		}
	}

	viper.SetEnvPrefix("MISTRAL_OCR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("api_key", "MISTRAL_OCR_API_KEY", "MISTRAL_API_KEY")

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("ocr.model", mistral.DefaultModel)
	viper.SetDefault("ocr.expiry_hours", mistral.DefaultExpiryHours)
	viper.SetDefault("ocr.user_agent", "mistral-ocr/"+version)
	viper.SetDefault("output.root", output.DefaultRoot)
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)
}

// loadConfig reads the effective settings from viper.
func loadConfig() types.Config {
	return types.Config{
		OCR: types.OCRConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("ocr.timeout"),
				UserAgent: viper.GetString("ocr.user_agent"),
			},
			APIBase:     viper.GetString("ocr.api_base"),
			Model:       viper.GetString("ocr.model"),
			ExpiryHours: viper.GetInt("ocr.expiry_hours"),
		},
		Output: types.OutputConfig{
			Root:     viper.GetString("output.root"),
			Manifest: viper.GetBool("output.manifest"),
		},
		Log: types.LogConfig{
			Level:      viper.GetString("log.level"),
			Pretty:     viper.GetBool("log.pretty"),
			File:       viper.GetString("log.file"),
			MaxSizeMB:  viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
			MaxAgeDays: viper.GetInt("log.max_age_days"),
			Compress:   viper.GetBool("log.compress"),
		},
	}
}

// resolveAPIKey picks the key from the flag, then the environment or config
// file, then .secrets/mistral-api-key.
func resolveAPIKey(flagValue, secretsDir string) (string, error) {
	if k := strings.TrimSpace(flagValue); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(viper.GetString("api_key")); k != "" {
		return k, nil
	}
	k, err := secrets.Lookup(secretsDir, secrets.MistralAPIKey)
	if err != nil {
		return "", err
	}
	if k != "" {
		log.Debug().Str("secret", secrets.MistralAPIKey).Msg("using api key from secrets directory")
		return k, nil
	}
	return "", fmt.Errorf("no API key: pass --api-key, set MISTRAL_API_KEY or write %s",
		filepath.Join(secretsDir, secrets.MistralAPIKey))
}

func main() {
	start := time.Now()
	err := rootCmd.Execute()
	log.Debug().Dur("elapsed", time.Since(start)).Msg("exit")
	if err != nil {
		os.Exit(1)
	}
}
