package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the fbfetch configuration file, in TOML.
type Config struct {
	// AccessToken authenticates every Graph API request. The
	// FACEBOOK_ACCESS_TOKEN environment variable overrides it.
	AccessToken string `toml:"access_token"`

	// BaseURL overrides the Graph API base URL. Empty means the default.
	BaseURL string `toml:"base_url,omitempty"`

	// PageLimit overrides the per-page record count on paged endpoints.
	PageLimit int `toml:"page_limit,omitempty"`

	// Dataset names the dataset that converted comments are namespaced
	// under.
	Dataset string `toml:"dataset,omitempty"`

	// Actor identifies who is running the pipeline, recorded in the
	// provenance metadata of converted records.
	Actor string `toml:"actor,omitempty"`

	// RawExportLog is the path of the JSON-lines audit file raw comment
	// downloads are appended to. Empty disables the audit log.
	RawExportLog string `toml:"raw_export_log,omitempty"`
}

// ReadConfig loads the configuration file and applies environment
// overrides. The config file is optional when the access token comes from
// the environment.
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if token := os.Getenv("FACEBOOK_ACCESS_TOKEN"); token != "" {
		cfg.AccessToken = token
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("no access token: set access_token in %s or FACEBOOK_ACCESS_TOKEN", path)
	}

	return cfg, nil
}
