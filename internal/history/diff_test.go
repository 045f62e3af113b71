/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"fmt"
	"strings"
	"testing"
)

func TestGenerateDiffPureAppend(t *testing.T) {
	old := "INT. HOUSE - DAY\n\nAnna enters.\nShe sits."
	n := len(strings.Split(old, "\n"))
	d := GenerateDiff(old, old+"\nNEW LINE")
	if len(d.Added) != 1 || d.Added[0] != (DiffLine{Line: n + 1, Content: "NEW LINE"}) {
		t.Fatalf("added = %+v", d.Added)
	}
	if len(d.Deleted) != 0 || len(d.Modified) != 0 || len(d.Unchanged) != n {
		t.Fatalf("unexpected buckets: %+v", d)
	}
}

func TestGenerateDiffTruncation(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e"}
	old := strings.Join(lines, "\n")
	for k := 1; k <= len(lines); k++ {
		d := GenerateDiff(old, strings.Join(lines[:k], "\n"))
		if len(d.Unchanged) != k || len(d.Deleted) != len(lines)-k || len(d.Added) != 0 || len(d.Modified) != 0 {
			t.Fatalf("k=%d: %+v", k, d)
		}
		for i, del := range d.Deleted {
			if del.Line != k+i+1 || del.Content != lines[k+i] {
				t.Fatalf("k=%d deleted[%d] = %+v", k, i, del)
			}
		}
	}
}

func TestGenerateDiffIsPositional(t *testing.T) {
	d := GenerateDiff("a\nb\nc", "x\na\nb\nc")
	if len(d.Modified) != 3 || len(d.Added) != 1 || d.Added[0].Content != "c" {
		t.Fatalf("insertion at top should shift everything: %+v", d)
	}
	if d.HasChanges() != true || GenerateDiff("same", "same").HasChanges() {
		t.Fatalf("HasChanges mismatch")
	}
}

func TestDiffChangesGroupsRuns(t *testing.T) {
	d := GenerateDiff("a\nb\nc\nd\ne\nf", "a\nB\nC\nd\nE")
	got := d.Changes()
	want := []VersionChange{
		{Type: ChangeModified, LineStart: 2, LineEnd: 3, OldContent: "b\nc", NewContent: "B\nC", Description: "Modified lines 2-3"},
		{Type: ChangeModified, LineStart: 5, LineEnd: 5, OldContent: "e", NewContent: "E", Description: "Modified line 5"},
		{Type: ChangeDeleted, LineStart: 6, LineEnd: 6, OldContent: "f", Description: "Deleted line 6"},
	}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("change %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	added := GenerateDiff("a", "a\nb\nc").Changes()
	if len(added) != 1 || added[0].Description != "Added lines 2-3" || added[0].NewContent != "b\nc" {
		t.Fatalf("added run = %+v", added)
	}
	if len(GenerateDiff("x", "x").Changes()) != 0 {
		t.Fatalf("identical content should yield no changes")
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"FADE IN:\n\nSomething.", FormatFountain},
		{"EXT. PARK - DAY", FormatFountain},
		{"BOB\nHi there.", FormatDialogue},
		{strings.Repeat("This is a very long line of prose that keeps going well beyond sixty characters. ", 2), FormatTreatment},
		{"short line\nanother one", FormatScreenplay},
		{"", FormatScreenplay},
	}
	for _, c := range cases {
		if got := DetectFormat(c.in); got != c.want {
			t.Fatalf("DetectFormat(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDeriveMetadata(t *testing.T) {
	content := "FADE IN:\nint. lab - night\nEXT. ROOF - DAY\n" + strings.Repeat("x", 300)
	m := deriveMetadata(content)
	if m.SceneCount != 3 {
		t.Fatalf("SceneCount = %d", m.SceneCount)
	}
	if m.CharacterCount != len(content) || m.PageCount != 2 {
		t.Fatalf("counts = %d chars, %d pages", m.CharacterCount, m.PageCount)
	}
	if m.WordCount != 11 {
		t.Fatalf("WordCount = %d", m.WordCount)
	}
	if len(m.ContentHash) != 64 || m.ContentHash != ContentHash(content) || m.ContentHash == ContentHash(content+" ") {
		t.Fatalf("bad content hash %q", m.ContentHash)
	}
	if empty := deriveMetadata(""); empty.PageCount != 0 || empty.WordCount != 0 {
		t.Fatalf("empty metadata = %+v", empty)
	}
}

func ExampleGenerateDiff() {
	d := GenerateDiff("one\ntwo", "one\n2\nthree")
	for _, c := range d.Changes() {
		fmt.Println(c.Description)
	}
	// Output:
	// Modified line 2
	// Added line 3
}
