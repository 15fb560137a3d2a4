package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"whisperd/pkg/types"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// Logical model name -> file name under ModelsDir. Empty map means
	// the models directory is scanned for *.bin files instead.
	Models map[string]string `json:"models" yaml:"models" toml:"models"`
	// Terminal job records older than this are evicted; an unpolled
	// result older than the window is dropped. 0 applies the one hour
	// default, negative keeps records until process exit.
	RetainFinishedForSec int    `json:"retain_finished_for_sec" yaml:"retain_finished_for_sec" toml:"retain_finished_for_sec"`
	MaxBodyMB            int    `json:"max_body_mb" yaml:"max_body_mb" toml:"max_body_mb"`
	LogLevel             string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	// Server-default transcription option layer; the lowest-precedence
	// layer of the per-job option merge.
	Transcribe types.Options `json:"transcribe" yaml:"transcribe" toml:"transcribe"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
