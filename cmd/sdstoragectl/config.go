package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// cliConfig is the on-disk configuration for sdstoragectl, distinct from
// sdstorage.Config: it holds only what a CLI invocation needs to build one.
type cliConfig struct {
	RootDir string `json:"root_dir"` //nolint:tagliatelle // snake_case for config file
	DevPath string `json:"dev_path,omitempty"`
}

// configFileName is the default project config file name.
const configFileName = ".sdstoragectl.json"

var errRootDirEmpty = errors.New("root_dir must not be empty")

func defaultCliConfig() cliConfig {
	return cliConfig{RootDir: "DATA"}
}

// globalConfigPath returns $XDG_CONFIG_HOME/sdstoragectl/config.json, or
// ~/.config/sdstoragectl/config.json if unset. Empty if undeterminable.
func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "sdstoragectl", "config.json")
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sdstoragectl", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "sdstoragectl", "config.json")
}

// loadCliConfig resolves configuration with precedence (highest wins):
// defaults, global config, project config (workDir/.sdstoragectl.json, or
// explicitConfigPath if set), CLI overrides.
func loadCliConfig(workDir, explicitConfigPath string, rootOverride string, env []string) (cliConfig, error) {
	cfg := defaultCliConfig()

	if path := globalConfigPath(env); path != "" {
		loaded, ok, err := readConfigFile(path, false)
		if err != nil {
			return cliConfig{}, err
		}

		if ok {
			cfg = merge(cfg, loaded)
		}
	}

	projectPath := explicitConfigPath
	mustExist := explicitConfigPath != ""

	if projectPath == "" {
		projectPath = filepath.Join(workDir, configFileName)
	} else if !filepath.IsAbs(projectPath) {
		projectPath = filepath.Join(workDir, projectPath)
	}

	loaded, ok, err := readConfigFile(projectPath, mustExist)
	if err != nil {
		return cliConfig{}, err
	}

	if ok {
		cfg = merge(cfg, loaded)
	}

	if rootOverride != "" {
		cfg.RootDir = rootOverride
	}

	if cfg.RootDir == "" {
		return cliConfig{}, errRootDirEmpty
	}

	return cfg, nil
}

func readConfigFile(path string, mustExist bool) (cliConfig, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is operator-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return cliConfig{}, false, nil
		}

		return cliConfig{}, false, fmt.Errorf("reading config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cliConfig{}, false, fmt.Errorf("invalid JSONC in %q: %w", path, err)
	}

	var cfg cliConfig

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return cliConfig{}, false, fmt.Errorf("invalid JSON in %q: %w", path, err)
	}

	return cfg, true, nil
}

func merge(base, overlay cliConfig) cliConfig {
	if overlay.RootDir != "" {
		base.RootDir = overlay.RootDir
	}

	if overlay.DevPath != "" {
		base.DevPath = overlay.DevPath
	}

	return base
}
