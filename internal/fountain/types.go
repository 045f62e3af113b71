/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fountain classifies plain-text screenplays written in Fountain markup
// into typed elements and renders element lists back to Fountain, HTML and a
// fixed-pitch shooting-script layout.
package fountain

// ElementType names the kind of a classified line.
type ElementType string

const (
	SceneHeading  ElementType = "scene_heading"
	Character     ElementType = "character"
	Dialogue      ElementType = "dialogue"
	Parenthetical ElementType = "parenthetical"
	Action        ElementType = "action"
	Transition    ElementType = "transition"
	Centered      ElementType = "centered"
	PageBreak     ElementType = "page_break"
	Note          ElementType = "note"
	Boneyard      ElementType = "boneyard" // reserved; boneyard regions are dropped by Parse
	Section       ElementType = "section"
	Synopsis      ElementType = "synopsis"
)

// Emphasis is the inline style detected on action lines.
type Emphasis string

const (
	EmphasisNone       Emphasis = ""
	EmphasisBold       Emphasis = "bold"
	EmphasisItalic     Emphasis = "italic"
	EmphasisUnderline  Emphasis = "underline"
	EmphasisBoldItalic Emphasis = "bold_italic"
)

// Element is one classified line of a screenplay. Elements are produced fresh
// by every Parse call and carry no identity beyond their position.
type Element struct {
	Type     ElementType `json:"type"`
	Content  string      `json:"content"`
	Dual     bool        `json:"dual,omitempty"`
	Emphasis Emphasis    `json:"emphasis,omitempty"`
	Metadata *Metadata   `json:"metadata,omitempty"`
}

// Metadata holds optional per-element annotations.
type Metadata struct {
	CharacterExtension string `json:"character_extension,omitempty"`
	SceneNumber        string `json:"scene_number,omitempty"`
}

// Extension returns the character extension such as "(V.O.)", or "".
func (e Element) Extension() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.CharacterExtension
}

// SceneNumber returns the scene number captured from a trailing #n# marker, or "".
func (e Element) SceneNumber() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.SceneNumber
}

// ValidationResult is the outcome of Validate. Errors are warnings meant for
// the writer; a script with errors still parses.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}
