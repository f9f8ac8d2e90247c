// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		env     string
		secret  string
		want    string
		wantErr bool
	}{
		{name: "flag wins", flag: "from-flag", env: "from-env", secret: "from-file", want: "from-flag"},
		{name: "env before secrets", env: "from-env", secret: "from-file", want: "from-env"},
		{name: "secrets file", secret: "from-file\n", want: "from-file"},
		{name: "blank flag ignored", flag: "   ", secret: "from-file", want: "from-file"},
		{name: "nothing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			t.Setenv("MISTRAL_API_KEY", tt.env)
			require.NoError(t, viper.BindEnv("api_key", "MISTRAL_API_KEY"))

			dir := t.TempDir()
			if tt.secret != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "mistral-api-key"), []byte(tt.secret), 0o600))
			}

			got, err := resolveAPIKey(tt.flag, dir)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "MISTRAL_API_KEY")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptContinue(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		err     error
		want    bool
		wantOut string
	}{
		{name: "enter continues", input: "\n", want: true, wantOut: "Finished doc.pdf"},
		{name: "anything else continues", input: "y\n", want: true},
		{name: "q quits", input: "q\n", want: false, wantOut: "Stopping at user request."},
		{name: "Q quits", input: " Q \n", want: false},
		{name: "eof quits", input: "", want: false},
		{name: "error prompt", input: "\n", err: errors.New("boom"), want: true, wantOut: "Error processing doc.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cont := promptContinue(strings.NewReader(tt.input), &out)

			assert.Equal(t, tt.want, cont("doc.pdf", tt.err))
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()
	viper.Set("output.manifest", true)
	viper.Set("ocr.model", "mistral-ocr-2503")

	cfg := loadConfig()
	assert.Equal(t, "outputs", cfg.Output.Root)
	assert.True(t, cfg.Output.Manifest)
	assert.Equal(t, "mistral-ocr-2503", cfg.OCR.Model)
	assert.Equal(t, 1, cfg.OCR.ExpiryHours)
	assert.Equal(t, "mistral-ocr/"+version, cfg.OCR.UserAgent)
	assert.Zero(t, cfg.OCR.Timeout)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "mistral-ocr dev\n", out.String())
}
