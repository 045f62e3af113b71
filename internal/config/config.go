/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type HistoryConfig struct {
	MaxVersions        int `yaml:"max_versions"`
	AutoSaveIntervalMs int `yaml:"autosave_interval_ms"`
	CleanupKeepRecent  int `yaml:"cleanup_keep_recent"`
	CleanupMinKeep     int `yaml:"cleanup_min_keep"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres" | "dir" | "memory"
	Path   string `yaml:"path"`   // sqlite file or dir store root
	DSN    string `yaml:"dsn"`    // postgres connection string
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	History       HistoryConfig `yaml:"history"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
	// The LLM API key lives in the OS keyring, never in this file.
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		History:       HistoryConfig{MaxVersions: 50, AutoSaveIntervalMs: 30000, CleanupKeepRecent: 20, CleanupMinKeep: 5},
		Storage:       StorageConfig{Driver: "sqlite"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvMaxVersions      = "RSP_MAX_VERSIONS"
	EnvAutoSaveInterval = "RSP_AUTOSAVE_INTERVAL_MS"
	EnvStorageDriver    = "RSP_STORAGE_DRIVER"
	EnvStoragePath      = "RSP_STORAGE_PATH"
	EnvPGDSN            = "RSP_PG_DSN"
	EnvLogLevel         = "RSP_LOG_LEVEL"
	EnvLogFormat        = "RSP_LOG_FORMAT"
	EnvLogSource        = "RSP_LOG_SOURCE"
	EnvLogFile          = "RSP_LOG_FILE"
	// EnvConfigFile points Load/Save at an explicit file instead of the per-user path.
	EnvConfigFile = "RSP_CONFIG_FILE"
)

const (
	keyringService = "ReadyScriptPro"
	keyringAPIKey  = "openrouter_api_key"
)

// SecretStore abstracts the OS keyring so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var secretStore SecretStore = osKeyring{}

// osKeyring implements SecretStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the per-user directory for the default history database.
func DataDir() (string, error) {
	base, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "data"), nil
}

func configDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ReadyScriptPro")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ReadyScriptPro")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "readyscript")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "readyscript")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The API key is loaded from the keyring and returned separately; a missing key is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.Path == "" && cfg.Storage.Driver != "memory" && cfg.Storage.Driver != "postgres" {
		if dir, err := DataDir(); err == nil {
			name := "history.sqlite"
			if cfg.Storage.Driver == "dir" {
				name = "history"
			}
			cfg.Storage.Path = filepath.Join(dir, name)
		}
	}
	key, _ := secretStore.Get(keyringService, keyringAPIKey)
	return cfg, key, nil
}

// Save writes the config YAML and stores apiKey in the keyring when non-empty.
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		return secretStore.Set(keyringService, keyringAPIKey, apiKey)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.History.MaxVersions > 0 {
		dst.History.MaxVersions = src.History.MaxVersions
	}
	if src.History.AutoSaveIntervalMs > 0 {
		dst.History.AutoSaveIntervalMs = src.History.AutoSaveIntervalMs
	}
	if src.History.CleanupKeepRecent > 0 {
		dst.History.CleanupKeepRecent = src.History.CleanupKeepRecent
	}
	if src.History.CleanupMinKeep > 0 {
		dst.History.CleanupMinKeep = src.History.CleanupMinKeep
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); v != "" {
		dst.Storage.Driver = v
	}
	if v := strings.TrimSpace(src.Storage.Path); v != "" {
		dst.Storage.Path = v
	}
	if v := strings.TrimSpace(src.Storage.DSN); v != "" {
		dst.Storage.DSN = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if n, ok := envInt(EnvMaxVersions); ok && n > 0 {
		cfg.History.MaxVersions = n
	}
	if n, ok := envInt(EnvAutoSaveInterval); ok && n > 0 {
		cfg.History.AutoSaveIntervalMs = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"history.max_versions":         EnvMaxVersions,
		"history.autosave_interval_ms": EnvAutoSaveInterval,
		"storage.driver":               EnvStorageDriver,
		"storage.path":                 EnvStoragePath,
		"storage.dsn":                  EnvPGDSN,
		"logging.level":                EnvLogLevel,
		"logging.format":               EnvLogFormat,
		"logging.source":               EnvLogSource,
		"logging.file":                 EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// AutoSaveInterval returns the configured auto-save period, falling back to the default.
func (h HistoryConfig) AutoSaveInterval() time.Duration {
	if h.AutoSaveIntervalMs <= 0 {
		return time.Duration(Defaults().History.AutoSaveIntervalMs) * time.Millisecond
	}
	return time.Duration(h.AutoSaveIntervalMs) * time.Millisecond
}
