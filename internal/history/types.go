/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import "time"

// ScriptVersion is one immutable snapshot of a project's script. Only Tags
// change after creation. Its JSON form is the export/import interchange format.
type ScriptVersion struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	UserID    string          `json:"userId"`
	Content   string          `json:"content"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Author    string          `json:"author"`
	Tags      []string        `json:"tags"`
	Metadata  VersionMetadata `json:"metadata"`
}

// VersionMetadata is derived from the content at save time. Changes holds the
// diff against the version that was newest when this one was saved.
type VersionMetadata struct {
	WordCount       int             `json:"wordCount"`
	CharacterCount  int             `json:"characterCount"`
	SceneCount      int             `json:"sceneCount"`
	PageCount       int             `json:"pageCount"`
	Format          string          `json:"format"`
	Changes         []VersionChange `json:"changes"`
	ParentVersionID string          `json:"parentVersionId,omitempty"`
	IsMajorVersion  bool            `json:"isMajorVersion"`
	IsAutoSave      bool            `json:"isAutoSave"`
	ContentHash     string          `json:"contentHash,omitempty"` // BLAKE3, hex
}

// ChangeType classifies a VersionChange.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeDeleted  ChangeType = "deleted"
	ChangeModified ChangeType = "modified"
)

// VersionChange is a run of consecutive lines (1-based, inclusive) that changed
// the same way between two adjacent versions.
type VersionChange struct {
	Type        ChangeType `json:"type"`
	LineStart   int        `json:"lineStart"`
	LineEnd     int        `json:"lineEnd"`
	OldContent  string     `json:"oldContent,omitempty"`
	NewContent  string     `json:"newContent,omitempty"`
	Description string     `json:"description"`
}

// DiffLine is one line in the added, deleted or unchanged bucket of a VersionDiff.
type DiffLine struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// ModifiedLine is one line present on both sides with different text.
type ModifiedLine struct {
	Line       int    `json:"line"`
	OldContent string `json:"oldContent"`
	NewContent string `json:"newContent"`
}

// VersionDiff is the four-way line classification produced by GenerateDiff.
type VersionDiff struct {
	Added     []DiffLine     `json:"added"`
	Deleted   []DiffLine     `json:"deleted"`
	Modified  []ModifiedLine `json:"modified"`
	Unchanged []DiffLine     `json:"unchanged"`
}

// VersionStats aggregates a project's stored versions. FirstVersion and
// LastVersion are RFC 3339 timestamps, empty when there are no versions.
type VersionStats struct {
	TotalVersions int    `json:"totalVersions"`
	MajorVersions int    `json:"majorVersions"`
	AutoSaves     int    `json:"autoSaves"`
	TotalChanges  int    `json:"totalChanges"`
	FirstVersion  string `json:"firstVersion"`
	LastVersion   string `json:"lastVersion"`
}

// VersionBranch names a separate log of versions. The engine keeps a single
// linear log per project and does not create branches; the type fixes the
// shape for a future multi-log store.
type VersionBranch struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ProjectID     string    `json:"projectId"`
	HeadVersionID string    `json:"headVersionId"`
	CreatedAt     time.Time `json:"createdAt"`
}
