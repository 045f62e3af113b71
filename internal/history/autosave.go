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
	"log/slog"
	"sync"
	"time"

	applog "readyscript/internal/log"
)

// AutoSaveTitle is used when the title accessor returns "".
const AutoSaveTitle = "Auto-save"

// StartAutoSave snapshots the project every AutoSaveInterval until the returned
// stop function is called or ctx is done. Each tick reads getContent and saves
// an auto-save version only when the content is non-empty and differs from the
// newest stored version.
//
// stop must be called when the editor session ends; it is safe to call more
// than once and returns after the background goroutine has exited.
func (e *Engine) StartAutoSave(ctx context.Context, projectID, userID string, getContent, getTitle func() string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	l := applog.WithOperation(e.log, "autosave")
	pctx := applog.WithProject(ctx, projectID)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(e.opts.AutoSaveInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				saved, err := e.autoSaveTick(ctx, projectID, userID, getContent, getTitle)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					l.WarnContext(pctx, "auto-save failed", slog.Any("err", err))
					continue
				}
				if saved {
					l.DebugContext(pctx, "auto-save stored a version")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// autoSaveTick performs one auto-save check. It reports whether a version was saved.
func (e *Engine) autoSaveTick(ctx context.Context, projectID, userID string, getContent, getTitle func() string) (bool, error) {
	content := getContent()
	if content == "" {
		return false, nil
	}
	saved := false
	err := e.withProject(ctx, projectID, func() error {
		list, err := e.load(ctx, projectID)
		if err != nil {
			return err
		}
		if len(list) > 0 && list[0].Content == content {
			return nil
		}
		title := ""
		if getTitle != nil {
			title = getTitle()
		}
		if title == "" {
			title = AutoSaveTitle
		}
		_, err = e.saveLocked(ctx, SaveInput{
			ProjectID: projectID,
			UserID:    userID,
			Content:   content,
			Title:     title,
			Message:   "Auto-saved",
			AutoSave:  true,
		})
		saved = err == nil
		return err
	})
	return saved, err
}
