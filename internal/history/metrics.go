/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// Script formats reported by DetectFormat.
const (
	FormatFountain   = "fountain"
	FormatDialogue   = "dialogue"
	FormatTreatment  = "treatment"
	FormatScreenplay = "screenplay"
)

// charsPerPage is the rough screenplay density used for PageCount.
const charsPerPage = 250

var reSceneMarker = regexp.MustCompile(`(?i)^\s*(INT\.|EXT\.|FADE IN:|FADE OUT)`)

// DetectFormat guesses the writing format of content. Checks run in a fixed
// order: scene markers, then short all-caps lines, then long average lines.
func DetectFormat(content string) string {
	if strings.Contains(content, "FADE IN:") || strings.Contains(content, "INT.") || strings.Contains(content, "EXT.") {
		return FormatFountain
	}
	var total, count int
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) < 30 && t == strings.ToUpper(t) && hasLetter(t) {
			return FormatDialogue
		}
		total += utf8.RuneCountInString(t)
		count++
	}
	if count > 0 && float64(total)/float64(count) > 60 {
		return FormatTreatment
	}
	return FormatScreenplay
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// CountScenes counts lines starting with a scene heading or fade marker.
func CountScenes(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if reSceneMarker.MatchString(line) {
			n++
		}
	}
	return n
}

// ContentHash returns the hex BLAKE3 digest of content.
func ContentHash(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func deriveMetadata(content string) VersionMetadata {
	chars := utf8.RuneCountInString(content)
	return VersionMetadata{
		WordCount:      len(strings.Fields(content)),
		CharacterCount: chars,
		SceneCount:     CountScenes(content),
		PageCount:      (chars + charsPerPage - 1) / charsPerPage,
		Format:         DetectFormat(content),
		Changes:        []VersionChange{},
		ContentHash:    ContentHash(content),
	}
}
