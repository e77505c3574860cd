// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the operator configuration shared by the issuing and
// verifying commands. Every field has a flag override; the file just
// saves retyping them.
type Config struct {
	// Issuer is the default issuer claim value, typically an ISO 3166
	// country code or an agency name.
	Issuer string `yaml:"issuer"`

	// Keystore is the path to the issuer credential bundle.
	Keystore string `yaml:"keystore"`

	// Truststore is the path to the trust anchor document.
	Truststore string `yaml:"truststore"`

	// Validity is the default certificate lifetime as a Go duration
	// string, e.g. "4320h" for 180 days.
	Validity string `yaml:"validity"`

	// BarcodeSize is the raster edge length in pixels. Zero selects
	// the renderer default.
	BarcodeSize int `yaml:"barcode_size"`
}

func defaultConfig() *Config {
	return &Config{
		Keystore:   "issuer.pem",
		Truststore: "trust.jsonc",
		Validity:   "4320h",
	}
}

// loadConfig reads the configuration file at path, or the default
// location when path is empty. A missing file is not an error: the
// defaults apply and flags fill in the rest.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return defaultConfig(), nil
		}
		path = filepath.Join(configDir, "hcert", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return config, nil
}

// validityDuration parses the configured validity string.
func (c *Config) validityDuration() (time.Duration, error) {
	validity, err := time.ParseDuration(c.Validity)
	if err != nil {
		return 0, fmt.Errorf("config validity %q: %w", c.Validity, err)
	}
	if validity <= 0 {
		return 0, fmt.Errorf("config validity %q: must be positive", c.Validity)
	}
	return validity, nil
}
