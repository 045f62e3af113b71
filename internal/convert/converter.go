/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package convert re-targets a raw script between reading modes. It uses its
// own shallow line classifier, independent of package fountain: character cues
// are recognised by shape alone, with no look-ahead, so the two packages can
// disagree on ambiguous lines.
package convert

import (
	"regexp"
	"strings"
)

// Format names a reading mode.
type Format string

const (
	Screenplay     Format = "screenplay"
	DialogueOnly   Format = "dialogue-only"
	Voiceover      Format = "voiceover"
	ShootingScript Format = "shooting-script"
)

// Formats lists every known format.
var Formats = []Format{Screenplay, DialogueOnly, Voiceover, ShootingScript}

// ParseFormat maps a user-supplied name onto a Format.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Formats {
		if k == f {
			return f, true
		}
	}
	return "", false
}

type kind string

const (
	kindScene         kind = "scene_heading"
	kindCharacter     kind = "character"
	kindDialogue      kind = "dialogue"
	kindParenthetical kind = "parenthetical"
	kindTransition    kind = "transition"
	kindAction        kind = "action"
	kindNarration     kind = "narration"
)

type element struct {
	kind    kind
	content string
}

// Left padding per element in shooting-script output.
const (
	shootingCharacterPad     = 25
	shootingParentheticalPad = 20
	shootingDialoguePad      = 15
	shootingTransitionPad    = 50
)

var (
	reScene        = regexp.MustCompile(`^(INT\.|EXT\.|INT/EXT\.|I/E\.)`)
	reCharacter    = regexp.MustCompile(`^[A-Z][A-Z\s]+$`)
	reParenthesis  = regexp.MustCompile(`^\(.*\)$`)
	reTransition   = regexp.MustCompile(`^(FADE IN:|FADE OUT\.|FADE TO BLACK\.|[A-Z ]+ TO:)$`)
	reScenePrefix  = regexp.MustCompile(`^(INT\.|EXT\.|INT/EXT\.|I/E\.)\s*`)
	reTimeOfDayEnd = regexp.MustCompile(`\s*-?\s*(DAY|NIGHT)\s*$`)
)

// Convert rewrites script from one format to another. Converting a format to
// itself returns script unchanged. Unknown target formats also return script
// unchanged. Convert never fails; a target with no matching lines yields "".
func Convert(script string, from, to Format) string {
	if from == to {
		return script
	}
	els := classify(script, from)
	switch to {
	case DialogueOnly:
		return toDialogueOnly(els)
	case Voiceover:
		return toVoiceover(els)
	case ShootingScript:
		return toShootingScript(els)
	case Screenplay:
		return toScreenplay(els)
	}
	return script
}

func classify(script string, from Format) []element {
	var out []element
	var prev kind
	for _, raw := range strings.Split(strings.ReplaceAll(script, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		var k kind
		switch {
		case reScene.MatchString(line):
			k = kindScene
		case reCharacter.MatchString(line) && len(line) < 30:
			k = kindCharacter
		case reParenthesis.MatchString(line):
			k = kindParenthetical
		case reTransition.MatchString(line):
			k = kindTransition
		default:
			k = fallback(from, prev)
		}
		out = append(out, element{kind: k, content: line})
		prev = k
	}
	return out
}

// fallback classifies a line that matched nothing, based on the source format.
func fallback(from Format, prev kind) kind {
	switch from {
	case Voiceover:
		return kindNarration
	case DialogueOnly:
		return kindDialogue
	}
	if prev == kindCharacter || prev == kindParenthetical || prev == kindDialogue {
		return kindDialogue
	}
	return kindAction
}

func toDialogueOnly(els []element) string {
	var parts []string
	for _, el := range els {
		if el.kind == kindCharacter || el.kind == kindDialogue {
			parts = append(parts, el.content)
		}
	}
	return strings.Join(parts, "\n")
}

func toVoiceover(els []element) string {
	var parts []string
	for _, el := range els {
		switch el.kind {
		case kindNarration, kindAction:
			parts = append(parts, el.content)
		case kindScene:
			s := reTimeOfDayEnd.ReplaceAllString(reScenePrefix.ReplaceAllString(el.content, ""), "")
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

func toShootingScript(els []element) string {
	var lines []string
	for i, el := range els {
		switch el.kind {
		case kindScene:
			if i > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, strings.ToUpper(el.content))
		case kindCharacter:
			lines = append(lines, "", pad(shootingCharacterPad)+el.content)
		case kindParenthetical:
			lines = append(lines, pad(shootingParentheticalPad)+el.content)
		case kindDialogue:
			lines = append(lines, pad(shootingDialoguePad)+el.content)
		case kindTransition:
			lines = append(lines, "", pad(shootingTransitionPad)+el.content)
		default:
			lines = append(lines, "", el.content)
		}
	}
	return strings.TrimLeft(strings.Join(lines, "\n"), "\n")
}

func toScreenplay(els []element) string {
	var lines []string
	for _, el := range els {
		switch el.kind {
		case kindParenthetical, kindDialogue:
			lines = append(lines, el.content)
		default:
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, el.content)
		}
	}
	return strings.Join(lines, "\n")
}

func pad(n int) string { return strings.Repeat(" ", n) }
