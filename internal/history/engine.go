/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps an append-only, diff-annotated log of script versions
// per project on top of a kv.Store. Versions are stored newest first under a
// key derived from the project id.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"readyscript/internal/kv"
	applog "readyscript/internal/log"
)

// ErrNotFound is returned when a version id is not in the project's log.
var ErrNotFound = errors.New("version not found")

// Options tunes retention and auto-save. Zero fields take the defaults.
type Options struct {
	// MaxVersions caps the log on every save; the oldest entries are dropped
	// regardless of type.
	MaxVersions int
	// AutoSaveInterval is the tick period of StartAutoSave.
	AutoSaveInterval time.Duration
	// CleanupKeepRecent is how many newest entries Cleanup always keeps.
	CleanupKeepRecent int
	// CleanupMinKeep is the floor of entries Cleanup leaves behind.
	CleanupMinKeep int
	// DegradedKeep is how many newest entries the last persistence retry writes.
	DegradedKeep int
}

// DefaultOptions returns the stock retention settings.
func DefaultOptions() Options {
	return Options{
		MaxVersions:       50,
		AutoSaveInterval:  30 * time.Second,
		CleanupKeepRecent: 20,
		CleanupMinKeep:    5,
		DegradedKeep:      10,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxVersions <= 0 {
		o.MaxVersions = d.MaxVersions
	}
	if o.AutoSaveInterval <= 0 {
		o.AutoSaveInterval = d.AutoSaveInterval
	}
	if o.CleanupKeepRecent <= 0 {
		o.CleanupKeepRecent = d.CleanupKeepRecent
	}
	if o.CleanupMinKeep <= 0 {
		o.CleanupMinKeep = d.CleanupMinKeep
	}
	if o.DegradedKeep <= 0 {
		o.DegradedKeep = d.DegradedKeep
	}
	return o
}

// KeyFor returns the store key holding projectID's version list.
func KeyFor(projectID string) string { return "script_versions_" + projectID }

// SaveInput describes a new version.
type SaveInput struct {
	ProjectID string
	UserID    string
	Content   string
	Title     string
	Message   string
	// Author defaults to UserID.
	Author   string
	AutoSave bool
	Major    bool
}

// Engine is the version history service. It is safe for concurrent use; writes
// to one project are serialised in-process, and across processes too when the
// store implements kv.Locker.
type Engine struct {
	store kv.Store
	opts  Options
	log   *slog.Logger
	mu    sync.Mutex
	now   func() time.Time

	persistFailures atomic.Int64
}

// NewEngine returns an engine over store.
func NewEngine(store kv.Store, opts Options) *Engine {
	return &Engine{
		store: store,
		opts:  opts.withDefaults(),
		log:   applog.WithComponent("history"),
		now:   time.Now,
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// PersistFailures counts writes that failed even after the degraded retries.
// Such failures are logged and otherwise swallowed, so callers needing
// durability should compare this counter before and after a call.
func (e *Engine) PersistFailures() int64 { return e.persistFailures.Load() }

// withProject runs fn with exclusive access to projectID's list.
func (e *Engine) withProject(ctx context.Context, projectID string, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lk, ok := e.store.(kv.Locker); ok {
		unlock, err := lk.Lock(ctx, KeyFor(projectID))
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(); err != nil {
				e.log.WarnContext(ctx, "release project lock failed", slog.Any("err", err))
			}
		}()
	}
	return fn()
}

// load reads the list. Unreadable JSON is logged and treated as an empty log.
func (e *Engine) load(ctx context.Context, projectID string) ([]ScriptVersion, error) {
	raw, ok, err := e.store.Read(ctx, KeyFor(projectID))
	if err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []ScriptVersion{}, nil
	}
	var list []ScriptVersion
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		e.log.ErrorContext(applog.WithProject(ctx, projectID), "stored version list is unreadable; starting empty", slog.Any("err", err))
		return []ScriptVersion{}, nil
	}
	return list, nil
}

// persist writes list. When the write fails it retries once with the Cleanup
// retention applied and once more with only the DegradedKeep newest entries.
// A final failure is logged and counted, not returned.
func (e *Engine) persist(ctx context.Context, projectID string, list []ScriptVersion) {
	l := applog.WithOperation(e.log, "persist")
	ctx = applog.WithProject(ctx, projectID)
	err := e.write(ctx, projectID, list)
	if err == nil {
		return
	}
	l.WarnContext(ctx, "write failed; retrying after cleanup", slog.Any("err", err), slog.Int("versions", len(list)))

	pruned := e.retain(list)
	if err = e.write(ctx, projectID, pruned); err == nil {
		return
	}
	keep := min(e.opts.DegradedKeep, len(list))
	l.WarnContext(ctx, "write after cleanup failed; retrying with newest only", slog.Any("err", err), slog.Int("keep", keep))
	if err = e.write(ctx, projectID, list[:keep]); err == nil {
		return
	}
	e.persistFailures.Add(1)
	l.ErrorContext(ctx, "version history not persisted", slog.Any("err", err))
}

func (e *Engine) write(ctx context.Context, projectID string, list []ScriptVersion) error {
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal versions: %w", err)
	}
	return e.store.Write(ctx, KeyFor(projectID), string(b))
}

func newVersionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("version_%d_%s", now.UnixMilli(), suffix)
}

// SaveVersion snapshots in.Content as the new head of the project's log. The
// new version carries the diff against the previous head. The log is then cut
// to MaxVersions, dropping the oldest entries whatever their type.
func (e *Engine) SaveVersion(ctx context.Context, in SaveInput) (ScriptVersion, error) {
	var v ScriptVersion
	err := e.withProject(ctx, in.ProjectID, func() error {
		var err error
		v, err = e.saveLocked(ctx, in)
		return err
	})
	return v, err
}

func (e *Engine) saveLocked(ctx context.Context, in SaveInput) (ScriptVersion, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return ScriptVersion{}, errors.New("project id is required")
	}
	list, err := e.load(ctx, in.ProjectID)
	if err != nil {
		return ScriptVersion{}, err
	}
	now := e.now()
	author := in.Author
	if author == "" {
		author = in.UserID
	}
	v := ScriptVersion{
		ID:        newVersionID(now),
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		Content:   in.Content,
		Title:     in.Title,
		Message:   in.Message,
		Timestamp: now,
		Author:    author,
		Tags:      []string{},
		Metadata:  deriveMetadata(in.Content),
	}
	v.Metadata.IsAutoSave = in.AutoSave
	v.Metadata.IsMajorVersion = in.Major
	if len(list) > 0 {
		prev := list[0]
		v.Metadata.ParentVersionID = prev.ID
		v.Metadata.Changes = GenerateDiff(prev.Content, in.Content).Changes()
	}

	list = append([]ScriptVersion{v}, list...)
	if len(list) > e.opts.MaxVersions {
		e.log.DebugContext(applog.WithProject(ctx, in.ProjectID), "evicting oldest versions", slog.Int("evicted", len(list)-e.opts.MaxVersions))
		list = list[:e.opts.MaxVersions]
	}
	e.persist(ctx, in.ProjectID, list)
	e.log.InfoContext(applog.WithProject(ctx, in.ProjectID), "version saved",
		slog.String("id", v.ID), slog.Bool("auto", in.AutoSave), slog.Bool("major", in.Major),
		slog.Int("changes", len(v.Metadata.Changes)))
	return v, nil
}

// Versions returns the project's versions, newest first.
func (e *Engine) Versions(ctx context.Context, projectID string) ([]ScriptVersion, error) {
	return e.load(ctx, projectID)
}

// Version returns one version by id.
func (e *Engine) Version(ctx context.Context, projectID, versionID string) (ScriptVersion, error) {
	list, err := e.load(ctx, projectID)
	if err != nil {
		return ScriptVersion{}, err
	}
	for _, v := range list {
		if v.ID == versionID {
			return v, nil
		}
	}
	return ScriptVersion{}, fmt.Errorf("%s: %w", versionID, ErrNotFound)
}

// DeleteVersion removes one version and reports whether it existed. Parent
// links of later versions are left pointing at the removed id.
func (e *Engine) DeleteVersion(ctx context.Context, projectID, versionID string) (bool, error) {
	found := false
	err := e.withProject(ctx, projectID, func() error {
		list, err := e.load(ctx, projectID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(list, func(v ScriptVersion) bool { return v.ID == versionID })
		if i < 0 {
			return nil
		}
		found = true
		e.persist(ctx, projectID, slices.Delete(list, i, i+1))
		return nil
	})
	return found, err
}

// TagVersion adds tag to a version unless already present and reports whether
// the version exists.
func (e *Engine) TagVersion(ctx context.Context, projectID, versionID, tag string) (bool, error) {
	found := false
	err := e.withProject(ctx, projectID, func() error {
		list, err := e.load(ctx, projectID)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ID != versionID {
				continue
			}
			found = true
			if slices.Contains(list[i].Tags, tag) {
				return nil
			}
			list[i].Tags = append(list[i].Tags, tag)
			e.persist(ctx, projectID, list)
			return nil
		}
		return nil
	})
	return found, err
}

// RestoreVersion saves the content of versionID again as a new head version.
// History is never rewritten.
func (e *Engine) RestoreVersion(ctx context.Context, projectID, versionID string) (ScriptVersion, error) {
	var restored ScriptVersion
	err := e.withProject(ctx, projectID, func() error {
		list, err := e.load(ctx, projectID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(list, func(v ScriptVersion) bool { return v.ID == versionID })
		if i < 0 {
			return fmt.Errorf("%s: %w", versionID, ErrNotFound)
		}
		src := list[i]
		restored, err = e.saveLocked(ctx, SaveInput{
			ProjectID: projectID,
			UserID:    src.UserID,
			Author:    src.Author,
			Content:   src.Content,
			Title:     src.Title + " (Restored)",
			Message:   fmt.Sprintf("Restored from version %s (%s)", src.ID, src.Timestamp.Format(time.RFC3339)),
		})
		return err
	})
	return restored, err
}

// CompareVersions diffs the content of two stored versions.
func (e *Engine) CompareVersions(ctx context.Context, projectID, fromID, toID string) (VersionDiff, error) {
	from, err := e.Version(ctx, projectID, fromID)
	if err != nil {
		return VersionDiff{}, err
	}
	to, err := e.Version(ctx, projectID, toID)
	if err != nil {
		return VersionDiff{}, err
	}
	return GenerateDiff(from.Content, to.Content), nil
}

// Stats aggregates the stored versions. An empty project yields zero stats.
func (e *Engine) Stats(ctx context.Context, projectID string) (VersionStats, error) {
	list, err := e.load(ctx, projectID)
	if err != nil {
		return VersionStats{}, err
	}
	return statsOf(list), nil
}

func statsOf(list []ScriptVersion) VersionStats {
	st := VersionStats{TotalVersions: len(list)}
	for _, v := range list {
		if v.Metadata.IsMajorVersion {
			st.MajorVersions++
		}
		if v.Metadata.IsAutoSave {
			st.AutoSaves++
		}
		st.TotalChanges += len(v.Metadata.Changes)
	}
	if len(list) > 0 {
		st.LastVersion = list[0].Timestamp.Format(time.RFC3339Nano)
		st.FirstVersion = list[len(list)-1].Timestamp.Format(time.RFC3339Nano)
	}
	return st
}

// Cleanup applies the type-aware retention policy: every major version, every
// manual save and the CleanupKeepRecent newest entries survive, and never fewer
// than CleanupMinKeep entries remain. It returns how many versions were removed.
// Cleanup is not run by SaveVersion.
func (e *Engine) Cleanup(ctx context.Context, projectID string) (int, error) {
	removed := 0
	err := e.withProject(ctx, projectID, func() error {
		list, err := e.load(ctx, projectID)
		if err != nil {
			return err
		}
		kept := e.retain(list)
		removed = len(list) - len(kept)
		if removed > 0 {
			e.persist(ctx, projectID, kept)
			e.log.InfoContext(applog.WithProject(ctx, projectID), "cleanup removed versions", slog.Int("removed", removed))
		}
		return nil
	})
	return removed, err
}

// retain returns the entries Cleanup keeps, in their original order.
func (e *Engine) retain(list []ScriptVersion) []ScriptVersion {
	out := make([]ScriptVersion, 0, len(list))
	for i, v := range list {
		if v.Metadata.IsMajorVersion || !v.Metadata.IsAutoSave || i < e.opts.CleanupKeepRecent || i < e.opts.CleanupMinKeep {
			out = append(out, v)
		}
	}
	return out
}
