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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if _, ok, err := s.Read(ctx, "missing"); err != nil || ok {
		t.Fatalf("Read(missing) ok=%v err=%v", ok, err)
	}
	if err := s.Write(ctx, "script_versions_p1", `[{"id":"a"}]`); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(ctx, "script_versions_p1", `[{"id":"b"}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Read(ctx, "script_versions_p1")
	if err != nil || !ok || v != `[{"id":"b"}]` {
		t.Fatalf("Read = %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Write(ctx, "weird/key with spaces", ""); err != nil {
		t.Fatalf("Write odd key: %v", err)
	}
	if v, ok, err := s.Read(ctx, "weird/key with spaces"); err != nil || !ok || v != "" {
		t.Fatalf("empty value should round trip: %q ok=%v err=%v", v, ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
	var zero Memory
	exerciseStore(t, &zero)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := s.Read(context.Background(), "x"); err != ErrClosed {
		t.Fatalf("Read after close err = %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if v, ok, _ := reopened.Read(context.Background(), "script_versions_p1"); !ok || v != `[{"id":"b"}]` {
		t.Fatalf("value not durable: %q", v)
	}
}

func TestDirStoreAndLock(t *testing.T) {
	d, err := NewDir(filepath.Join(t.TempDir(), "kv"))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	exerciseStore(t, d)

	entries, _ := os.ReadDir(d.Root)
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Fatalf("unexpected leftover file %s", e.Name())
		}
	}

	ctx := context.Background()
	unlock, err := d.Lock(ctx, "p1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	var wg sync.WaitGroup
	acquired := make(chan time.Time, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		u, err := d.Lock(ctx, "p1")
		if err != nil {
			t.Errorf("second Lock: %v", err)
			return
		}
		acquired <- time.Now()
		_ = u()
	}()
	time.Sleep(120 * time.Millisecond)
	released := time.Now()
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	wg.Wait()
	if got := <-acquired; got.Before(released) {
		t.Fatalf("second lock acquired before the first was released")
	}

	cctx, cancel := context.WithTimeout(ctx, 80*time.Millisecond)
	defer cancel()
	hold, err := d.Lock(ctx, "p2")
	if err != nil {
		t.Fatalf("Lock p2: %v", err)
	}
	defer hold()
	if _, err := d.Lock(cctx, "p2"); err == nil {
		t.Fatalf("expected context timeout while p2 is held")
	}
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{"memory", "sqlite", "dir"} {
		path := filepath.Join(t.TempDir(), "store")
		s, c, err := Open(ctx, driver, path, "")
		if err != nil {
			t.Fatalf("Open(%s): %v", driver, err)
		}
		exerciseStore(t, s)
		_ = c.Close()
	}
	if _, _, err := Open(ctx, "redis", "", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RSP_PG_DSN")
	if dsn == "" {
		t.Skip("RSP_PG_DSN not set")
	}
	p, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer p.Close()
	exerciseStore(t, p)
	unlock, err := p.Lock(context.Background(), "script_versions_p1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}
