/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package kv

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Dir is a Store keeping one file per key under a root directory. Writes go to
// a temp file that is renamed over the target. Lock uses an flock(2) file next
// to the value so several processes can share one directory.
type Dir struct {
	Root string
	// RetryDelay is the poll interval while waiting for a lock.
	RetryDelay time.Duration
}

// NewDir creates root if needed and returns a store over it.
func NewDir(root string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("dir store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Dir{Root: root, RetryDelay: 50 * time.Millisecond}, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.Root, url.PathEscape(key)+".json")
}

func (d *Dir) Read(_ context.Context, key string) (string, bool, error) {
	b, err := os.ReadFile(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), true, nil
}

func (d *Dir) Write(_ context.Context, key, value string) error {
	target := d.path(key)
	temp := filepath.Join(d.Root, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	f, err := os.OpenFile(temp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		_ = os.Remove(temp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(temp)
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Lock blocks until the per-key file lock is held or ctx is done.
func (d *Dir) Lock(ctx context.Context, key string) (func() error, error) {
	fl := flock.New(d.path(key) + ".lock")
	delay := d.RetryDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	ok, err := fl.TryLockContext(ctx, delay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", key)
	}
	return fl.Unlock, nil
}
