/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fountain

import (
	"regexp"
	"strings"
)

var (
	reSceneHeading  = regexp.MustCompile(`(?i)^(INT|EXT|EST|I/E|INT/EXT|INTERIOR|EXTERIOR)\.`)
	reSceneNumber   = regexp.MustCompile(`#(\w+)#\s*$`)
	reNote          = regexp.MustCompile(`^\[\[(.*)\]\]$`)
	reParenthetical = regexp.MustCompile(`^\(.+\)$`)
	reCueParts      = regexp.MustCompile(`^(.*?)\s*((?:\([^)]*\)\s*)*)(\^)?$`)
	reItalic        = regexp.MustCompile(`\*[^*]+\*`)
	reUnderline     = regexp.MustCompile(`_[^_]+_`)
)

// transitions is the fixed vocabulary recognised without a forcing marker.
var transitions = map[string]struct{}{
	"FADE IN:":     {},
	"FADE OUT.":    {},
	"CUT TO:":      {},
	"DISSOLVE TO:": {},
	"MATCH CUT:":   {},
	"SMASH CUT:":   {},
	"JUMP CUT:":    {},
	"CROSS CUT:":   {},
}

// Parse classifies every non-blank line of script into an Element.
//
// Blank lines only separate blocks and produce nothing. A line containing "/*"
// opens a boneyard and a line containing "*/" closes it; both lines and
// everything between are dropped. An unterminated boneyard swallows the rest of
// the script. Parse never fails: anything unrecognised becomes Action.
func Parse(script string) []Element {
	lines := splitLines(script)
	out := make([]Element, 0, len(lines))

	// prev is the classification of the raw previous line, blank or boneyard
	// included, so dialogue detection sees exactly the line above it.
	var prev ElementType
	inBoneyard := false
	for i, raw := range lines {
		trim := strings.TrimSpace(raw)
		if trim == "" {
			prev = ""
			continue
		}
		el := classify(lines, i, prev)
		prev = el.Type

		if inBoneyard {
			if strings.Contains(trim, "*/") {
				inBoneyard = false
			}
			continue
		}
		if idx := strings.Index(trim, "/*"); idx >= 0 {
			if !strings.Contains(trim[idx+2:], "*/") {
				inBoneyard = true
			}
			continue
		}
		out = append(out, el)
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// classify applies the precedence rules to lines[i]. prev is the type of lines[i-1].
func classify(lines []string, i int, prev ElementType) Element {
	trim := strings.TrimSpace(lines[i])

	switch {
	case trim == "===":
		return Element{Type: PageBreak}
	case strings.HasPrefix(trim, "#"):
		return Element{Type: Section, Content: strings.TrimSpace(strings.TrimLeft(trim, "#"))}
	case strings.HasPrefix(trim, "="):
		return Element{Type: Synopsis, Content: strings.TrimSpace(strings.TrimLeft(trim, "="))}
	}
	if m := reNote.FindStringSubmatch(trim); m != nil {
		return Element{Type: Note, Content: strings.TrimSpace(m[1])}
	}
	if strings.HasPrefix(trim, ".") && !strings.HasPrefix(trim, "..") {
		return sceneHeading(strings.TrimSpace(trim[1:]))
	}
	if IsSceneHeading(trim) {
		return sceneHeading(trim)
	}
	if IsTransition(trim) {
		return Element{Type: Transition, Content: trim}
	}
	if strings.HasPrefix(trim, ">") && !strings.HasPrefix(trim, ">>") && !strings.HasSuffix(trim, "<") {
		return Element{Type: Transition, Content: strings.TrimSpace(trim[1:])}
	}
	if strings.HasPrefix(trim, ">") && strings.HasSuffix(trim, "<") && len(trim) >= 2 {
		return Element{Type: Centered, Content: strings.TrimSpace(trim[1 : len(trim)-1])}
	}
	if el, ok := character(lines, i, trim); ok {
		return el
	}
	if reParenthetical.MatchString(trim) {
		return Element{Type: Parenthetical, Content: trim}
	}
	if prev == Character || prev == Parenthetical {
		return Element{Type: Dialogue, Content: trim}
	}
	return Element{Type: Action, Content: trim, Emphasis: DetectEmphasis(trim)}
}

func sceneHeading(content string) Element {
	el := Element{Type: SceneHeading, Content: content}
	if m := reSceneNumber.FindStringSubmatch(content); m != nil {
		el.Metadata = &Metadata{SceneNumber: m[1]}
	}
	return el
}

// character reports whether trim is a character cue. A cue is a line equal to
// its own uppercase form that is neither a scene heading nor a transition, and
// that is followed by a non-blank line which is a parenthetical or anything other
// than a heading or transition. A lone all-caps line with nothing after it stays
// Action. The trailing run of (...) extensions goes to metadata; a "^" suffix
// marks dual dialogue.
func character(lines []string, i int, trim string) (Element, bool) {
	if trim != strings.ToUpper(trim) || IsSceneHeading(trim) || IsTransition(trim) {
		return Element{}, false
	}
	if i+1 >= len(lines) {
		return Element{}, false
	}
	next := strings.TrimSpace(lines[i+1])
	if next == "" {
		return Element{}, false
	}
	if !reParenthetical.MatchString(next) && (IsSceneHeading(next) || IsTransition(next)) {
		return Element{}, false
	}
	el := Element{Type: Character, Content: trim}
	m := reCueParts.FindStringSubmatch(trim)
	if m == nil {
		return el, true
	}
	el.Dual = m[3] != ""
	name, ext := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if name == "" {
		// Nothing but extensions: keep the whole line as the name.
		el.Content = strings.TrimSpace(strings.TrimSuffix(trim, "^"))
		return el, true
	}
	el.Content = name
	if ext != "" {
		el.Metadata = &Metadata{CharacterExtension: ext}
	}
	return el, true
}

// IsSceneHeading reports whether line starts with a recognised INT./EXT.-style prefix.
func IsSceneHeading(line string) bool {
	return reSceneHeading.MatchString(strings.TrimSpace(line))
}

// IsTransition reports whether line is a known transition or an all-caps line ending in ':'.
func IsTransition(line string) bool {
	t := strings.TrimSpace(line)
	if _, ok := transitions[t]; ok {
		return true
	}
	return strings.HasSuffix(t, ":") && t == strings.ToUpper(t)
}

// DetectEmphasis reports the inline style of s. Bold and italic markers together
// yield EmphasisBoldItalic.
func DetectEmphasis(s string) Emphasis {
	bold := strings.Contains(s, "**")
	italic := reItalic.MatchString(strings.ReplaceAll(s, "**", "")) || strings.Contains(s, "***")
	switch {
	case bold && italic:
		return EmphasisBoldItalic
	case bold:
		return EmphasisBold
	case italic:
		return EmphasisItalic
	case reUnderline.MatchString(s):
		return EmphasisUnderline
	}
	return EmphasisNone
}
