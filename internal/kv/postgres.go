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
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// language=SQL
// dialect=PostgreSQL
const createKVTablePG = `CREATE TABLE IF NOT EXISTS script_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// language=SQL
// dialect=PostgreSQL
const selectKVPG = `SELECT value FROM script_kv WHERE key = $1`

// language=SQL
// dialect=PostgreSQL
const upsertKVPG = `INSERT INTO script_kv(key, value, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// Postgres is a Store backed by a shared PostgreSQL table, for hosted
// deployments where several app instances write the same projects.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with the pgx driver, pings and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, createKVTablePG); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create script_kv: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Read(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := p.db.QueryRowContext(ctx, selectKVPG, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

func (p *Postgres) Write(ctx context.Context, key, value string) error {
	if _, err := p.db.ExecContext(ctx, upsertKVPG, key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Lock takes a session-level advisory lock derived from key on a dedicated
// connection. The lock is released, and the connection returned, by unlock.
func (p *Postgres) Lock(ctx context.Context, key string) (func() error, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock conn: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return func() error {
		_, uerr := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, key)
		cerr := conn.Close()
		if uerr != nil {
			return fmt.Errorf("advisory unlock %s: %w", key, uerr)
		}
		return cerr
	}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }
