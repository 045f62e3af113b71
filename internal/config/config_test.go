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
	"testing"
	"time"
)

type memSecrets map[string]string

func (m memSecrets) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memSecrets) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memSecrets) Delete(service, key string) error     { delete(m, service+"/"+key); return nil }

func useTempConfig(t *testing.T) (string, memSecrets) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	old := secretStore
	ms := memSecrets{}
	secretStore = ms
	t.Cleanup(func() { secretStore = old })
	return path, ms
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	useTempConfig(t)
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty api key, got %q", key)
	}
	if cfg.History.MaxVersions != 50 || cfg.History.CleanupKeepRecent != 20 || cfg.History.CleanupMinKeep != 5 {
		t.Fatalf("unexpected history defaults: %+v", cfg.History)
	}
	if cfg.Storage.Driver != "sqlite" || filepath.Base(cfg.Storage.Path) != "history.sqlite" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if got := cfg.History.AutoSaveInterval(); got != 30*time.Second {
		t.Fatalf("AutoSaveInterval = %v", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	_, secrets := useTempConfig(t)
	cfg := Defaults()
	cfg.History.MaxVersions = 12
	cfg.Storage.Driver = "dir"
	cfg.Storage.Path = "/tmp/rsp-history"
	if err := Save(cfg, "sk-test"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if secrets[keyringService+"/"+keyringAPIKey] != "sk-test" {
		t.Fatalf("api key not written to keyring: %v", secrets)
	}
	got, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if key != "sk-test" {
		t.Fatalf("api key = %q", key)
	}
	if got.History.MaxVersions != 12 || got.Storage.Driver != "dir" || got.Storage.Path != "/tmp/rsp-history" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	path, _ := useTempConfig(t)
	if err := os.WriteFile(path, []byte("history:\n  max_versions: 7\nlogging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvMaxVersions, "9")
	t.Setenv(EnvStorageDriver, "POSTGRES")
	t.Setenv(EnvPGDSN, "postgres://u:p@db/rsp")
	t.Setenv(EnvLogSource, "yes")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.History.MaxVersions != 9 {
		t.Fatalf("MaxVersions = %d, want env value 9", cfg.History.MaxVersions)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Source {
		t.Fatalf("logging not merged: %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://u:p@db/rsp" || cfg.Storage.Path != "" {
		t.Fatalf("storage overrides not applied: %+v", cfg.Storage)
	}
	if name, ok := EnvOverrideFor("history.max_versions"); !ok || name != EnvMaxVersions {
		t.Fatalf("EnvOverrideFor = %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("history.cleanup_min_keep"); ok {
		t.Fatalf("cleanup_min_keep has no env override")
	}
}

func TestMergeIgnoresZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Format: " JSON "}}
	mergeInto(&dst, &src)
	if dst.History.MaxVersions != 50 || dst.Storage.Driver != "sqlite" {
		t.Fatalf("zero values overwrote defaults: %+v", dst)
	}
	if dst.Logging.Format != "json" {
		t.Fatalf("Logging.Format = %q", dst.Logging.Format)
	}
}
