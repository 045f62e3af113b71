/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fountain

import (
	"strings"
	"testing"
)

const sample = `Title treatment goes here.

INT. DINER - NIGHT #4#

Rain hammers the *windows*.

LENA (CONT'D)
(whispering)
We need to go.

DEREK
Not yet.

CUT TO:

> END OF ACT <

===

[[fix the ending]]

>GO TO BLACK`

func TestStringifyReparsesSample(t *testing.T) {
	first := Parse(sample)
	second := Parse(Stringify(first))
	if len(first) != len(second) {
		t.Fatalf("round trip changed element count: %d -> %d\n%s", len(first), len(second), Stringify(first))
	}
	for i := range first {
		if first[i].Type != second[i].Type || first[i].Content != second[i].Content {
			t.Fatalf("element %d changed: %+v -> %+v", i, first[i], second[i])
		}
		if first[i].Extension() != second[i].Extension() {
			t.Fatalf("element %d extension changed: %q -> %q", i, first[i].Extension(), second[i].Extension())
		}
	}
}

func TestStringifyKeepsCueNextToFollowingLine(t *testing.T) {
	first := Parse("JORDAN\n[[beat]]\nHello there.")
	out := Stringify(first)
	if strings.Contains(out, "JORDAN\n\n") {
		t.Fatalf("blank line after cue:\n%q", out)
	}
	second := Parse(out)
	if len(second) != len(first) {
		t.Fatalf("element count %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Type != second[i].Type {
			t.Fatalf("element %d type %s -> %s", i, first[i].Type, second[i].Type)
		}
	}
}

func TestStringifyIndentation(t *testing.T) {
	out := Stringify([]Element{
		{Type: Character, Content: "DEREK"},
		{Type: Parenthetical, Content: "(beat)"},
		{Type: Dialogue, Content: "Not yet."},
		{Type: Transition, Content: "CUT TO:"},
		{Type: SceneHeading, Content: "DREAM SEQUENCE"},
	})
	lines := strings.Split(out, "\n")
	want := []string{
		strings.Repeat(" ", fountainCharacterIndent) + "DEREK",
		strings.Repeat(" ", fountainParentheticalIndent) + "(beat)",
		strings.Repeat(" ", fountainDialogueIndent) + "Not yet.",
		"",
		strings.Repeat(" ", fountainTransitionIndent) + "CUT TO:",
		"",
		".DREAM SEQUENCE",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestToHTML(t *testing.T) {
	out := ToHTML(Parse(sample))
	for _, want := range []string{
		`<h3 class="script-scene_heading" data-scene-number="4">INT. DINER - NIGHT #4#</h3>`,
		`<p class="script-action">Rain hammers the <em>windows</em>.</p>`,
		`<p class="script-character">LENA <span class="script-extension">(CONT&#39;D)</span></p>`,
		`<p class="script-parenthetical">(whispering)</p>`,
		`<p class="script-dialogue">We need to go.</p>`,
		`<p class="script-transition">CUT TO:</p>`,
		`<p class="script-centered">END OF ACT</p>`,
		`<hr class="script-page_break" />`,
		`<aside class="script-note">fix the ending</aside>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("HTML missing %q:\n%s", want, out)
		}
	}
}

func TestToHTMLEmphasisOnlyOnAction(t *testing.T) {
	out := ToHTML([]Element{
		{Type: Action, Content: "***Boom*** and **crash** and _thud_ <b>"},
		{Type: Dialogue, Content: "*not styled*"},
	})
	if !strings.Contains(out, "<strong><em>Boom</em></strong> and <strong>crash</strong> and <u>thud</u> &lt;b&gt;") {
		t.Fatalf("action emphasis not applied: %s", out)
	}
	if !strings.Contains(out, `<p class="script-dialogue">*not styled*</p>`) {
		t.Fatalf("dialogue should keep raw markers: %s", out)
	}
}

func TestToPDFTextLayout(t *testing.T) {
	out := ToPDFText(Parse(sample))
	lines := strings.Split(out, "\n")
	has := func(want string) {
		t.Helper()
		for _, l := range lines {
			if l == want {
				return
			}
		}
		t.Fatalf("layout missing line %q:\n%s", want, out)
	}
	has("INT. DINER - NIGHT #4#")
	has(strings.Repeat(" ", 20) + "LENA (CONT'D)")
	has(strings.Repeat(" ", 15) + "(whispering)")
	has(strings.Repeat(" ", 10) + "We need to go.")
	has(strings.Repeat(" ", 40) + "CUT TO:")
	has(PDFPageBreak)
	if strings.Contains(out, "fix the ending") {
		t.Fatalf("notes must not print:\n%s", out)
	}
	if !strings.HasPrefix(out, "Title treatment goes here.") {
		t.Fatalf("unexpected start:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	ok := Validate("INT. ROOM - DAY\n\nJOHN\n(quietly)\nHi.")
	if !ok.IsValid || len(ok.Errors) != 0 {
		t.Fatalf("expected valid script, got %+v", ok)
	}

	res := Validate("John\n(quietly)\nHi.\n\nMary\nHello back.\n\n(unfinished thought")
	if res.IsValid {
		t.Fatalf("expected warnings")
	}
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 warnings, got %v", res.Errors)
	}
	if !strings.HasPrefix(res.Errors[0], "Line 1:") || !strings.HasPrefix(res.Errors[1], "Line 5:") || !strings.HasPrefix(res.Errors[2], "Line 8:") {
		t.Fatalf("unexpected warning lines: %v", res.Errors)
	}
}

func TestSummarize(t *testing.T) {
	st := Summarize(Parse(sample))
	if st.Scenes != 1 || st.DialogueLines != 2 || st.Transitions != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if len(st.Characters) != 2 || st.Characters[0] != "LENA" || st.Characters[1] != "DEREK" {
		t.Fatalf("characters = %v", st.Characters)
	}
}
