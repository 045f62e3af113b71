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
	"fmt"
	"io"
	"strings"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the store selected by driver: "sqlite" (path is the db file),
// "dir" (path is the root directory), "postgres" (dsn) or "memory".
// The closer must be closed when the store is no longer used.
func Open(ctx context.Context, driver, path, dsn string) (Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "dir":
		d, err := NewDir(path)
		if err != nil {
			return nil, nil, err
		}
		return d, nopCloser{}, nil
	case "postgres", "pg":
		p, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "memory":
		return NewMemory(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
