package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const templateHeader = "# sinkctl configuration. Keys left out keep their defaults.\n"

// Template renders the default configuration as "toml" or "yaml".
func Template(format string) (string, error) {
	cfg := Default()
	var (
		body []byte
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml", ".toml":
		body, err = gotoml.Marshal(cfg)
	case "yaml", "yml", ".yaml", ".yml":
		body, err = yaml.Marshal(cfg)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, format)
	}
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", format, err)
	}
	return templateHeader + string(body), nil
}

// WriteTemplate writes the default configuration to path in the format its
// extension names.
func WriteTemplate(path string, overwrite bool) error {
	template, err := Template(filepath.Ext(path))
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
