/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	applog "readyscript/internal/log"
)

//go:embed schema/export.schema.json
var exportSchema []byte

var exportSchemaLoader = gojsonschema.NewBytesLoader(exportSchema)

// ErrInvalidImport is returned by Import when the payload is not a version history export.
var ErrInvalidImport = errors.New("invalid version history export")

// Export is the document written by Engine.Export.
type Export struct {
	ProjectID  string          `json:"projectId"`
	ExportedAt time.Time       `json:"exportedAt"`
	Stats      VersionStats    `json:"stats"`
	Versions   []ScriptVersion `json:"versions"`
}

// Export serialises the project's stats and versions as indented JSON. Change
// lists are emptied to keep the payload small.
func (e *Engine) Export(ctx context.Context, projectID string) (string, error) {
	list, err := e.load(ctx, projectID)
	if err != nil {
		return "", err
	}
	doc := Export{
		ProjectID:  projectID,
		ExportedAt: e.now().UTC(),
		Stats:      statsOf(list),
		Versions:   make([]ScriptVersion, len(list)),
	}
	for i, v := range list {
		v.Metadata.Changes = []VersionChange{}
		doc.Versions[i] = v
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal export: %w", err)
	}
	return string(b), nil
}

// Import replaces projectID's whole log with the versions in data. Payloads
// that are not valid exports yield ErrInvalidImport and leave the log untouched.
// The list is written as is; a failed write is returned, never trimmed and retried.
// Imported versions are re-owned by projectID.
func (e *Engine) Import(ctx context.Context, projectID, data string) error {
	l := applog.WithOperation(e.log, "import")
	pctx := applog.WithProject(ctx, projectID)
	res, err := gojsonschema.Validate(exportSchemaLoader, gojsonschema.NewStringLoader(data))
	if err != nil {
		l.WarnContext(pctx, "import payload unreadable", slog.Any("err", err))
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			msgs = append(msgs, re.String())
		}
		l.WarnContext(pctx, "import payload rejected", slog.Int("errors", len(msgs)))
		return fmt.Errorf("%w: %s", ErrInvalidImport, strings.Join(msgs, "; "))
	}
	var doc Export
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for i := range doc.Versions {
		doc.Versions[i].ProjectID = projectID
		if doc.Versions[i].Tags == nil {
			doc.Versions[i].Tags = []string{}
		}
		if doc.Versions[i].Metadata.Changes == nil {
			doc.Versions[i].Metadata.Changes = []VersionChange{}
		}
	}
	return e.withProject(ctx, projectID, func() error {
		if err := e.write(ctx, projectID, doc.Versions); err != nil {
			l.ErrorContext(pctx, "import not stored", slog.Any("err", err))
			return fmt.Errorf("import: %w", err)
		}
		l.InfoContext(pctx, "version history imported", slog.Int("versions", len(doc.Versions)))
		return nil
	})
}
