/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"readyscript/internal/config"
	"readyscript/internal/crash"
	"readyscript/internal/history"
	"readyscript/internal/kv"
	applog "readyscript/internal/log"
)

func historyUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: readyscript history <command> <project> ...")
	_, _ = fmt.Fprintln(w, "  save <project> <file> <title> [message] [--major]   Snapshot a script")
	_, _ = fmt.Fprintln(w, "  list <project>                                      List versions, newest first")
	_, _ = fmt.Fprintln(w, "  show <project> <id>                                 Print a version's content")
	_, _ = fmt.Fprintln(w, "  diff <project> <fromID> <toID>                      Compare two versions")
	_, _ = fmt.Fprintln(w, "  restore <project> <id>                              Save an old version as the new head")
	_, _ = fmt.Fprintln(w, "  tag <project> <id> <tag>                            Tag a version")
	_, _ = fmt.Fprintln(w, "  delete <project> <id>                               Delete a version")
	_, _ = fmt.Fprintln(w, "  stats <project>                                     Summarise the history")
	_, _ = fmt.Fprintln(w, "  cleanup <project>                                   Drop old auto-saves")
	_, _ = fmt.Fprintln(w, "  export <project>                                    Print the history as JSON")
	_, _ = fmt.Fprintln(w, "  import <project> <file>                             Replace the history from JSON")
	_, _ = fmt.Fprintln(w, "  watch <project> <file>                              Auto-save a file until interrupted")
}

// openEngine builds the history engine from the user config. The returned
// function closes the backing store.
func openEngine(ctx context.Context) (*history.Engine, config.AppConfig, func(), error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, cfg, nil, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	store, closer, err := kv.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DSN)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	e := history.NewEngine(store, history.Options{
		MaxVersions:       cfg.History.MaxVersions,
		AutoSaveInterval:  cfg.History.AutoSaveInterval(),
		CleanupKeepRecent: cfg.History.CleanupKeepRecent,
		CleanupMinKeep:    cfg.History.CleanupMinKeep,
	})
	closeFn := func() {
		if err := closer.Close(); err != nil {
			applog.WithComponent("cli").Warn("close store failed", slog.Any("err", err))
		}
	}
	return e, cfg, closeFn, nil
}

func currentUser() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return "local"
}

func cmdHistory(ctx context.Context, args []string, w io.Writer, cc *crash.Context) error {
	if len(args) == 0 || args[0] == "help" {
		historyUsage(w)
		return nil
	}
	sub, rest := args[0], args[1:]
	need := map[string]int{
		"save": 3, "list": 1, "show": 2, "diff": 3, "restore": 2, "tag": 3,
		"delete": 2, "stats": 1, "cleanup": 1, "export": 1, "import": 2, "watch": 2,
	}
	n, ok := need[sub]
	if !ok {
		return usageError("unknown history command %q", sub)
	}
	if len(rest) < n {
		return usageError("history %s needs %d argument(s)", sub, n)
	}
	project := rest[0]

	e, cfg, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	ctx = applog.WithProject(ctx, project)
	if dir, derr := config.DataDir(); derr == nil {
		cc.Dir = filepath.Join(dir, "crash")
	}

	switch sub {
	case "save":
		return historySave(ctx, e, w, project, rest[1:])
	case "list":
		return historyList(ctx, e, w, project)
	case "show":
		v, err := e.Version(ctx, project, rest[1])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, properties(
			"ID", v.ID, "Title", v.Title, "Message", v.Message, "Author", v.Author,
			"Saved", v.Timestamp.Local().Format(time.DateTime), "Tags", strings.Join(v.Tags, ", "),
			"Words", strconv.Itoa(v.Metadata.WordCount), "Pages", strconv.Itoa(v.Metadata.PageCount),
			"Format", v.Metadata.Format, "Parent", v.Metadata.ParentVersionID,
		))
		_, err = fmt.Fprintln(w, v.Content)
		return err
	case "diff":
		d, err := e.CompareVersions(ctx, project, rest[1], rest[2])
		if err != nil {
			return err
		}
		return printDiff(w, d)
	case "restore":
		v, err := e.RestoreVersion(ctx, project, rest[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Restored %s as %s\n", rest[1], v.ID)
		return err
	case "tag":
		found, err := e.TagVersion(ctx, project, rest[1], rest[2])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s: %w", rest[1], history.ErrNotFound)
		}
		_, err = fmt.Fprintf(w, "Tagged %s with %q\n", rest[1], rest[2])
		return err
	case "delete":
		found, err := e.DeleteVersion(ctx, project, rest[1])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s: %w", rest[1], history.ErrNotFound)
		}
		_, err = fmt.Fprintf(w, "Deleted %s\n", rest[1])
		return err
	case "stats":
		st, err := e.Stats(ctx, project)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, properties(
			"Versions", strconv.Itoa(st.TotalVersions),
			"Major", strconv.Itoa(st.MajorVersions),
			"Auto-saves", strconv.Itoa(st.AutoSaves),
			"Changes", strconv.Itoa(st.TotalChanges),
			"First", st.FirstVersion,
			"Last", st.LastVersion,
		))
		return err
	case "cleanup":
		removed, err := e.Cleanup(ctx, project)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Removed %d version(s)\n", removed)
		return err
	case "export":
		doc, err := e.Export(ctx, project)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, doc)
		return err
	case "import":
		data, err := os.ReadFile(rest[1])
		if err != nil {
			return fmt.Errorf("read export: %w", err)
		}
		if err := e.Import(ctx, project, string(data)); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Imported history into %s\n", project)
		return err
	case "watch":
		return historyWatch(ctx, e, cfg, w, project, rest[1], cc)
	}
	return nil
}

func historySave(ctx context.Context, e *history.Engine, w io.Writer, project string, args []string) error {
	major := slices.Contains(args, "--major")
	args = slices.DeleteFunc(slices.Clone(args), func(s string) bool { return s == "--major" })
	if len(args) < 2 {
		return usageError("history save requires <project> <file> <title>")
	}
	content, err := readScript(args[0])
	if err != nil {
		return err
	}
	msg := ""
	if len(args) > 2 {
		msg = args[2]
	}
	before := e.PersistFailures()
	v, err := e.SaveVersion(ctx, history.SaveInput{
		ProjectID: project,
		UserID:    currentUser(),
		Content:   content,
		Title:     args[1],
		Message:   msg,
		Major:     major,
	})
	if err != nil {
		return err
	}
	if e.PersistFailures() != before {
		return errors.New("version was created but could not be stored")
	}
	_, err = fmt.Fprintf(w, "Saved %s (%d change(s))\n", v.ID, len(v.Metadata.Changes))
	return err
}

func historyList(ctx context.Context, e *history.Engine, w io.Writer, project string) error {
	list, err := e.Versions(ctx, project)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err = fmt.Fprintf(w, "No versions for %s\n", project)
		return err
	}
	tbl := newListing("ID", "Saved", "Title", "Kind", "Words", "Changes", "Tags").alignRight("Words", "Changes")
	for _, v := range list {
		kind := "manual"
		switch {
		case v.Metadata.IsMajorVersion:
			kind = "major"
		case v.Metadata.IsAutoSave:
			kind = "auto"
		}
		tbl.add(
			v.ID,
			v.Timestamp.Local().Format(time.DateTime),
			v.Title,
			kind,
			strconv.Itoa(v.Metadata.WordCount),
			strconv.Itoa(len(v.Metadata.Changes)),
			strings.Join(v.Tags, ","),
		)
	}
	_, err = fmt.Fprintln(w, tbl)
	return err
}

func printDiff(w io.Writer, d history.VersionDiff) error {
	if !d.HasChanges() {
		_, err := fmt.Fprintln(w, "No differences")
		return err
	}
	tbl := newListing("Change", "Lines", "Old", "New")
	for _, c := range d.Changes() {
		tbl.add(string(c.Type), lineRange(c.LineStart, c.LineEnd), c.OldContent, c.NewContent)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func lineRange(a, b int) string {
	if a == b {
		return strconv.Itoa(a)
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// historyWatch auto-saves path until SIGINT/SIGTERM. A panic while watching
// stores the current file content as a major version before exiting.
func historyWatch(ctx context.Context, e *history.Engine, cfg config.AppConfig, w io.Writer, project, path string, cc *crash.Context) error {
	if _, err := readScript(path); err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("cli"), "watch")
	read := func() string {
		b, err := os.ReadFile(path)
		if err != nil {
			l.WarnContext(ctx, "read watched file failed", slog.Any("err", err))
			return ""
		}
		return string(b)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	user := currentUser()
	cc.Script = path
	cc.Snapshot = func() (string, error) {
		v, err := e.SaveVersion(context.Background(), history.SaveInput{
			ProjectID: project, UserID: user, Content: read(), Title: title,
			Message: "Crash snapshot", Major: true,
		})
		return v.ID, err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	stop := e.StartAutoSave(ctx, project, user, read, func() string { return title })
	defer stop()

	_, _ = fmt.Fprintf(w, "Watching %s every %s (Ctrl+C to stop)\n", path, cfg.History.AutoSaveInterval())
	<-ctx.Done()
	stop()
	st, err := e.Stats(context.Background(), project)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Stopped; %d version(s), %d auto-save(s)\n", st.TotalVersions, st.AutoSaves)
	return err
}
