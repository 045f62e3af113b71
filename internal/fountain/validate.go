/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fountain

import (
	"fmt"
	"regexp"
	"strings"
)

// reNameShaped matches short lines that look like a speaker name typed in the
// wrong case: letters, spaces and a few name punctuation marks, no sentence end.
var reNameShaped = regexp.MustCompile(`^[\p{L}][\p{L} .'\-]{0,29}$`)

// Validate lints script and returns actionable warnings. It flags likely
// character cues typed in lower case (a name-shaped line followed directly by a
// parenthetical or a line of speech) and parentheticals missing ")".
func Validate(script string) ValidationResult {
	lines := splitLines(script)
	errs := []string{}
	for i, raw := range lines {
		trim := strings.TrimSpace(raw)
		if trim == "" {
			continue
		}
		lineNo := i + 1

		if strings.HasPrefix(trim, "(") && !strings.Contains(trim, ")") {
			errs = append(errs, fmt.Sprintf("Line %d: parenthetical is missing a closing \")\"", lineNo))
			continue
		}

		if trim == strings.ToUpper(trim) || !reNameShaped.MatchString(trim) || len(strings.Fields(trim)) > 3 {
			continue
		}
		if strings.HasSuffix(trim, ".") || IsSceneHeading(trim) {
			continue
		}
		if i+1 >= len(lines) {
			continue
		}
		next := strings.TrimSpace(lines[i+1])
		if next == "" {
			continue
		}
		if strings.HasPrefix(next, "(") || next != strings.ToUpper(next) {
			errs = append(errs, fmt.Sprintf("Line %d: %q looks like a character name and should be uppercase", lineNo, trim))
		}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Stats summarises an element list.
type Stats struct {
	Scenes         int            `json:"scenes"`
	DialogueLines  int            `json:"dialogueLines"`
	ActionLines    int            `json:"actionLines"`
	Transitions    int            `json:"transitions"`
	Characters     []string       `json:"characters"` // unique cue names, first appearance order
	SpeakingCounts map[string]int `json:"speakingCounts"`
}

// Summarize counts scenes, lines and speakers in elements.
func Summarize(elements []Element) Stats {
	st := Stats{Characters: []string{}, SpeakingCounts: map[string]int{}}
	for _, el := range elements {
		switch el.Type {
		case SceneHeading:
			st.Scenes++
		case Dialogue:
			st.DialogueLines++
		case Action:
			st.ActionLines++
		case Transition:
			st.Transitions++
		case Character:
			name := strings.ToUpper(el.Content)
			if _, seen := st.SpeakingCounts[name]; !seen {
				st.Characters = append(st.Characters, name)
			}
			st.SpeakingCounts[name]++
		}
	}
	return st
}
