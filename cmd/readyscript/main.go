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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"readyscript/internal/config"
	"readyscript/internal/convert"
	"readyscript/internal/crash"
	"readyscript/internal/fountain"
	applog "readyscript/internal/log"
	"readyscript/internal/pdfexport"
	"readyscript/internal/version"
)

// errUsage marks bad invocations; run prints usage and exits with code 2.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "ReadyScriptPro script tools")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  readyscript version|-v|--version                  Show version")
	_, _ = fmt.Fprintln(w, "  readyscript parse <file> [fountain|html|pdf-text|json]")
	_, _ = fmt.Fprintln(w, "                                                     Parse a Fountain script and print it")
	_, _ = fmt.Fprintln(w, "  readyscript validate <file>                        Report formatting warnings")
	_, _ = fmt.Fprintln(w, "  readyscript stats <file>                           Count scenes, lines and speakers")
	_, _ = fmt.Fprintln(w, "  readyscript convert <file> <from> <to>             Convert between reading formats")
	_, _ = fmt.Fprintln(w, "  readyscript pdf <file> <out.pdf>                   Print a screenplay PDF")
	_, _ = fmt.Fprintln(w, "  readyscript history <command> <project> ...        Version history (see 'history help')")
	_, _ = fmt.Fprintln(w, "  readyscript config show|set-key <key>              Show settings or store the API key")
}

func main() {
	applog.Init(applog.FromEnv())
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one CLI invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	l := applog.WithComponent("cli")
	cc := &crash.Context{}
	defer crash.Recover(cc)

	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "parse":
		err = cmdParse(args[1:], stdout)
	case "validate":
		var ok bool
		ok, err = cmdValidate(args[1:], stdout)
		if err == nil && !ok {
			return 1
		}
	case "stats":
		err = cmdStats(args[1:], stdout)
	case "convert":
		err = cmdConvert(args[1:], stdout)
	case "pdf":
		err = cmdPDF(args[1:], stdout)
	case "history":
		err = cmdHistory(ctx, args[1:], stdout, cc)
	case "config":
		err = cmdConfig(args[1:], stdout)
	default:
		err = usageError("unknown command %q", args[0])
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintln(stderr, strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		usage(stderr)
		return 2
	default:
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
}

func readScript(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

func cmdParse(args []string, w io.Writer) error {
	if len(args) < 1 {
		return usageError("parse requires <file>")
	}
	mode := "fountain"
	if len(args) > 1 {
		mode = strings.ToLower(args[1])
	}
	src, err := readScript(args[0])
	if err != nil {
		return err
	}
	elements := fountain.Parse(src)
	switch mode {
	case "fountain":
		_, err = fmt.Fprintln(w, fountain.Stringify(elements))
	case "html":
		_, err = fmt.Fprintln(w, fountain.ToHTML(elements))
	case "pdf-text", "text":
		_, err = fmt.Fprintln(w, fountain.ToPDFText(elements))
	case "json":
		b, merr := json.MarshalIndent(elements, "", "  ")
		if merr != nil {
			return fmt.Errorf("marshal elements: %w", merr)
		}
		_, err = fmt.Fprintln(w, string(b))
	default:
		return usageError("unknown parse output %q", mode)
	}
	return err
}

func cmdValidate(args []string, w io.Writer) (bool, error) {
	if len(args) < 1 {
		return false, usageError("validate requires <file>")
	}
	src, err := readScript(args[0])
	if err != nil {
		return false, err
	}
	res := fountain.Validate(src)
	if res.IsValid {
		_, _ = fmt.Fprintln(w, "OK: no formatting problems found")
		return true, nil
	}
	for _, msg := range res.Errors {
		_, _ = fmt.Fprintln(w, msg)
	}
	return false, nil
}

func cmdStats(args []string, w io.Writer) error {
	if len(args) < 1 {
		return usageError("stats requires <file>")
	}
	src, err := readScript(args[0])
	if err != nil {
		return err
	}
	st := fountain.Summarize(fountain.Parse(src))
	_, _ = fmt.Fprintln(w, properties(
		"Scenes", strconv.Itoa(st.Scenes),
		"Dialogue lines", strconv.Itoa(st.DialogueLines),
		"Action lines", strconv.Itoa(st.ActionLines),
		"Transitions", strconv.Itoa(st.Transitions),
		"Characters", strconv.Itoa(len(st.Characters)),
	))
	if len(st.Characters) == 0 {
		return nil
	}
	speakers := newListing("Character", "Speeches").alignRight("Speeches")
	for _, name := range st.Characters {
		speakers.add(name, strconv.Itoa(st.SpeakingCounts[name]))
	}
	_, err = fmt.Fprintln(w, speakers)
	return err
}

func cmdConvert(args []string, w io.Writer) error {
	if len(args) < 3 {
		return usageError("convert requires <file> <from> <to>")
	}
	from, ok := convert.ParseFormat(args[1])
	if !ok {
		return usageError("unknown format %q", args[1])
	}
	to, ok := convert.ParseFormat(args[2])
	if !ok {
		return usageError("unknown format %q", args[2])
	}
	src, err := readScript(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, convert.Convert(src, from, to))
	return err
}

func cmdPDF(args []string, w io.Writer) error {
	if len(args) < 2 {
		return usageError("pdf requires <file> <out.pdf>")
	}
	src, err := readScript(args[0])
	if err != nil {
		return err
	}
	n, err := pdfexport.WriteFile(args[1], fountain.Parse(src), pdfexport.Options{Title: args[0]})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Wrote %s (%d pages)\n", args[1], n)
	return err
}

func cmdConfig(args []string, w io.Writer) error {
	if len(args) < 1 {
		return usageError("config requires show or set-key")
	}
	cfg, key, err := config.Load()
	if err != nil {
		return err
	}
	switch args[0] {
	case "show":
		path, _ := config.ConfigPath()
		keyState := "not set"
		if key != "" {
			keyState = "set (keyring)"
		}
		settings := newListing("Setting", "Value", "Override")
		for _, row := range [][]string{
			{"config file", path},
			{"history.max_versions", strconv.Itoa(cfg.History.MaxVersions), envNote("history.max_versions")},
			{"history.autosave_interval_ms", strconv.Itoa(cfg.History.AutoSaveIntervalMs), envNote("history.autosave_interval_ms")},
			{"history.cleanup_keep_recent", strconv.Itoa(cfg.History.CleanupKeepRecent)},
			{"history.cleanup_min_keep", strconv.Itoa(cfg.History.CleanupMinKeep)},
			{"storage.driver", cfg.Storage.Driver, envNote("storage.driver")},
			{"storage.path", cfg.Storage.Path, envNote("storage.path")},
			{"storage.dsn", redact(cfg.Storage.DSN), envNote("storage.dsn")},
			{"logging.level", cfg.Logging.Level, envNote("logging.level")},
			{"logging.format", cfg.Logging.Format, envNote("logging.format")},
			{"api key", keyState},
		} {
			settings.add(row...)
		}
		_, err = fmt.Fprintln(w, settings)
		return err
	case "set-key":
		if len(args) < 2 {
			return usageError("config set-key requires <key>")
		}
		if err := config.Save(cfg, args[1]); err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, "API key stored in the system keyring")
		return err
	default:
		return usageError("unknown config command %q", args[0])
	}
}

func envNote(key string) string {
	if name, ok := config.EnvOverrideFor(key); ok {
		return name
	}
	return ""
}

func redact(dsn string) string {
	if dsn == "" {
		return ""
	}
	return "(set)"
}
