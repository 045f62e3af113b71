/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

const sample = `INT. KITCHEN - NIGHT

Mara pours coffee.

MARA
(tired)
Another late one.

JON
You love it.

CUT TO:
`

func setupCLI(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("RSP_CONFIG_FILE", filepath.Join(dir, "config.yaml"))
	t.Setenv("RSP_STORAGE_DRIVER", "sqlite")
	t.Setenv("RSP_STORAGE_PATH", filepath.Join(dir, "history.sqlite"))
	t.Setenv("RSP_LOG_LEVEL", "error")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestVersionAndUsage(t *testing.T) {
	setupCLI(t)
	if code, out, _ := runCLI(t, "version"); code != 0 || strings.TrimSpace(out) == "" {
		t.Fatalf("version: code=%d out=%q", code, out)
	}
	if code, _, errOut := runCLI(t, "frobnicate"); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Fatalf("unknown command: code=%d err=%q", code, errOut)
	}
	if code, _, _ := runCLI(t, "parse"); code != 2 {
		t.Fatalf("parse without file: code=%d", code)
	}
}

func TestParseStatsConvert(t *testing.T) {
	dir := setupCLI(t)
	script := writeFile(t, dir, "pilot.fountain", sample)

	code, out, _ := runCLI(t, "parse", script, "json")
	if code != 0 || !strings.Contains(out, `"type": "scene_heading"`) || !strings.Contains(out, `"type": "parenthetical"`) {
		t.Fatalf("parse json: code=%d out=%s", code, out)
	}
	code, out, _ = runCLI(t, "parse", script, "html")
	if code != 0 || !strings.Contains(out, `class="script-character"`) {
		t.Fatalf("parse html: code=%d out=%s", code, out)
	}
	code, out, _ = runCLI(t, "stats", script)
	if code != 0 || !strings.Contains(out, "MARA") || !strings.Contains(out, "Scenes") {
		t.Fatalf("stats: code=%d out=%s", code, out)
	}
	code, out, _ = runCLI(t, "convert", script, "screenplay", "dialogue-only")
	if code != 0 || strings.TrimSpace(out) != "MARA\nAnother late one.\nJON\nYou love it." {
		t.Fatalf("convert: code=%d out=%q", code, out)
	}
	if code, _, _ := runCLI(t, "convert", script, "screenplay", "sitcom"); code != 2 {
		t.Fatalf("unknown format should be a usage error, got %d", code)
	}
}

func TestValidateExitCode(t *testing.T) {
	dir := setupCLI(t)
	good := writeFile(t, dir, "good.fountain", sample)
	bad := writeFile(t, dir, "bad.fountain", "INT. ROOM - DAY\n\nMara\nHello.\n")
	if code, out, _ := runCLI(t, "validate", good); code != 0 || !strings.HasPrefix(out, "OK") {
		t.Fatalf("validate good: code=%d out=%q", code, out)
	}
	if code, out, _ := runCLI(t, "validate", bad); code != 1 || !strings.Contains(out, "Line 3") {
		t.Fatalf("validate bad: code=%d out=%q", code, out)
	}
}

func TestPDFCommand(t *testing.T) {
	dir := setupCLI(t)
	script := writeFile(t, dir, "pilot.fountain", sample)
	out := filepath.Join(dir, "out", "pilot.pdf")
	if code, stdout, errOut := runCLI(t, "pdf", script, out); code != 0 || !strings.Contains(stdout, "1 pages") {
		t.Fatalf("pdf: code=%d out=%q err=%q", code, stdout, errOut)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("pdf missing: %v", err)
	}
}

var savedID = regexp.MustCompile(`Saved (version_\S+)`)

func TestHistoryWorkflow(t *testing.T) {
	dir := setupCLI(t)
	script := writeFile(t, dir, "pilot.fountain", sample)

	code, out, errOut := runCLI(t, "history", "save", "pilot", script, "First draft", "--major")
	m := savedID.FindStringSubmatch(out)
	if code != 0 || m == nil {
		t.Fatalf("save: code=%d out=%q err=%q", code, out, errOut)
	}
	first := m[1]

	writeFile(t, dir, "pilot.fountain", strings.Replace(sample, "You love it.", "You live for it.", 1))
	_, out, _ = runCLI(t, "history", "save", "pilot", script, "Second draft", "polish")
	m = savedID.FindStringSubmatch(out)
	if m == nil || !strings.Contains(out, "(1 change(s))") {
		t.Fatalf("second save: %q", out)
	}
	second := m[1]

	if code, out, _ := runCLI(t, "history", "list", "pilot"); code != 0 || !strings.Contains(out, first) || !strings.Contains(out, "major") {
		t.Fatalf("list: code=%d out=%s", code, out)
	}
	if code, out, _ := runCLI(t, "history", "diff", "pilot", first, second); code != 0 || !strings.Contains(out, "You live for it.") {
		t.Fatalf("diff: code=%d out=%s", code, out)
	}
	if code, _, _ := runCLI(t, "history", "tag", "pilot", first, "table-read"); code != 0 {
		t.Fatalf("tag failed")
	}
	if code, _, _ := runCLI(t, "history", "tag", "pilot", "version_missing", "x"); code != 1 {
		t.Fatalf("tag of a missing version should fail")
	}
	if code, out, _ := runCLI(t, "history", "restore", "pilot", first); code != 0 || !strings.Contains(out, "Restored "+first) {
		t.Fatalf("restore: code=%d out=%q", code, out)
	}
	if code, out, _ := runCLI(t, "history", "stats", "pilot"); code != 0 || !strings.Contains(out, "3") {
		t.Fatalf("stats: code=%d out=%s", code, out)
	}

	code, exported, _ := runCLI(t, "history", "export", "pilot")
	if code != 0 || !strings.Contains(exported, "table-read") {
		t.Fatalf("export: code=%d out=%s", code, exported)
	}
	dump := writeFile(t, dir, "pilot.json", exported)
	if code, _, errOut := runCLI(t, "history", "import", "copy", dump); code != 0 {
		t.Fatalf("import: code=%d err=%q", code, errOut)
	}
	if code, out, _ := runCLI(t, "history", "show", "copy", first); code != 0 || !strings.Contains(out, "You love it.") {
		t.Fatalf("show imported: code=%d out=%s", code, out)
	}
	bogus := writeFile(t, dir, "bogus.json", `{"nope":true}`)
	if code, _, errOut := runCLI(t, "history", "import", "copy", bogus); code != 1 || !strings.Contains(errOut, "invalid version history export") {
		t.Fatalf("bogus import: code=%d err=%q", code, errOut)
	}

	if code, out, _ := runCLI(t, "history", "delete", "pilot", second); code != 0 || !strings.Contains(out, "Deleted") {
		t.Fatalf("delete: code=%d out=%q", code, out)
	}
	if code, out, _ := runCLI(t, "history", "cleanup", "pilot"); code != 0 || !strings.Contains(out, "Removed 0") {
		t.Fatalf("cleanup: code=%d out=%q", code, out)
	}
}

func TestConfigShowAndSetKey(t *testing.T) {
	setupCLI(t)
	code, out, _ := runCLI(t, "config", "show")
	if code != 0 || !strings.Contains(out, "RSP_STORAGE_DRIVER") || !strings.Contains(out, "not set") {
		t.Fatalf("config show: code=%d out=%s", code, out)
	}
	if code, _, errOut := runCLI(t, "config", "set-key", "sk-test"); code != 0 {
		t.Fatalf("set-key: code=%d err=%q", code, errOut)
	}
	if _, out, _ := runCLI(t, "config", "show"); !strings.Contains(out, "set (keyring)") {
		t.Fatalf("key not reported as set: %s", out)
	}
}
