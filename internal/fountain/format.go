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
	"html"
	"regexp"
	"strings"
)

// Indentation used by Stringify. Parse trims leading whitespace, so these are
// cosmetic and do not affect re-parsing.
const (
	fountainCharacterIndent     = 12
	fountainParentheticalIndent = 8
	fountainDialogueIndent      = 4
	fountainTransitionIndent    = 40
)

// Column offsets of the shooting-script text layout, in Courier character cells.
const (
	pdfCharacterIndent     = 20
	pdfParentheticalIndent = 15
	pdfDialogueIndent      = 10
	pdfTransitionIndent    = 40
	pdfLineWidth           = 60
)

// PDFPageBreak marks a forced page break in ToPDFText output.
const PDFPageBreak = "\f"

// Stringify renders elements as a re-parseable Fountain document. The round trip
// is lossy: spacing, blank-line counts and emphasis detection on non-action lines
// are not preserved, and element types survive only where the classification
// rules can see them again from the emitted text.
func Stringify(elements []Element) string {
	var b strings.Builder
	var prev ElementType
	for i, el := range elements {
		if i > 0 {
			b.WriteByte('\n')
			if !continuesSpeech(prev, el.Type) {
				b.WriteByte('\n')
			}
		}
		b.WriteString(fountainLine(el))
		prev = el.Type
	}
	return b.String()
}

// continuesSpeech reports whether cur follows prev inside one dialogue block,
// where a blank line would break the cue look-ahead or the dialogue pairing.
func continuesSpeech(prev, cur ElementType) bool {
	if prev == Character {
		return true
	}
	switch cur {
	case Dialogue, Parenthetical:
		return prev == Character || prev == Parenthetical || prev == Dialogue
	}
	return false
}

func fountainLine(el Element) string {
	switch el.Type {
	case SceneHeading:
		if IsSceneHeading(el.Content) {
			return el.Content
		}
		return "." + el.Content
	case Character:
		s := strings.ToUpper(el.Content)
		if ext := el.Extension(); ext != "" {
			s += " " + ext
		}
		if el.Dual {
			s += " ^"
		}
		return pad(fountainCharacterIndent) + s
	case Parenthetical:
		return pad(fountainParentheticalIndent) + wrapParens(el.Content)
	case Dialogue:
		return pad(fountainDialogueIndent) + el.Content
	case Transition:
		if IsTransition(el.Content) {
			return pad(fountainTransitionIndent) + el.Content
		}
		return pad(fountainTransitionIndent) + "> " + el.Content
	case Centered:
		return "> " + el.Content + " <"
	case PageBreak:
		return "==="
	case Note:
		return "[[" + el.Content + "]]"
	case Boneyard:
		return "/* " + el.Content + " */"
	case Section:
		return "# " + el.Content
	case Synopsis:
		return "= " + el.Content
	default:
		return el.Content
	}
}

func wrapParens(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		s = "(" + s
	}
	if !strings.HasSuffix(s, ")") {
		s += ")"
	}
	return s
}

func pad(n int) string { return strings.Repeat(" ", n) }

var (
	reHTMLBoldItalic = regexp.MustCompile(`\*\*\*([^*]+)\*\*\*`)
	reHTMLBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reHTMLItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	reHTMLUnderline  = regexp.MustCompile(`_([^_]+)_`)
)

// ToHTML wraps each element in a tag carrying a "script-<type>" class.
// Inline emphasis markers are converted only for action elements.
func ToHTML(elements []Element) string {
	var b strings.Builder
	for _, el := range elements {
		class := "script-" + string(el.Type)
		content := html.EscapeString(el.Content)
		switch el.Type {
		case SceneHeading:
			if n := el.SceneNumber(); n != "" {
				fmt.Fprintf(&b, "<h3 class=%q data-scene-number=%q>%s</h3>\n", class, html.EscapeString(n), content)
			} else {
				fmt.Fprintf(&b, "<h3 class=%q>%s</h3>\n", class, content)
			}
		case Section:
			fmt.Fprintf(&b, "<h2 class=%q>%s</h2>\n", class, content)
		case PageBreak:
			fmt.Fprintf(&b, "<hr class=%q />\n", class)
		case Note:
			fmt.Fprintf(&b, "<aside class=%q>%s</aside>\n", class, content)
		case Character:
			if ext := el.Extension(); ext != "" {
				content += ` <span class="script-extension">` + html.EscapeString(ext) + `</span>`
			}
			fmt.Fprintf(&b, "<p class=%q>%s</p>\n", class, content)
		case Action:
			fmt.Fprintf(&b, "<p class=%q>%s</p>\n", class, applyEmphasis(content))
		default:
			fmt.Fprintf(&b, "<p class=%q>%s</p>\n", class, content)
		}
	}
	return b.String()
}

func applyEmphasis(s string) string {
	s = reHTMLBoldItalic.ReplaceAllString(s, "<strong><em>$1</em></strong>")
	s = reHTMLBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = reHTMLItalic.ReplaceAllString(s, "<em>$1</em>")
	s = reHTMLUnderline.ReplaceAllString(s, "<u>$1</u>")
	return s
}

// ToPDFText lays elements out for a fixed-pitch page: scene headings upper-cased
// and flush left, cues, parentheticals, dialogue and transitions at fixed columns.
// Notes, sections and synopses do not print. Page breaks become PDFPageBreak lines.
func ToPDFText(elements []Element) string {
	var lines []string
	blank := func() {
		if len(lines) > 0 && lines[len(lines)-1] != "" {
			lines = append(lines, "")
		}
	}
	for _, el := range elements {
		switch el.Type {
		case SceneHeading:
			blank()
			lines = append(lines, strings.ToUpper(el.Content))
			lines = append(lines, "")
		case Action:
			lines = append(lines, el.Content)
			lines = append(lines, "")
		case Character:
			blank()
			name := strings.ToUpper(el.Content)
			if ext := el.Extension(); ext != "" {
				name += " " + ext
			}
			lines = append(lines, pad(pdfCharacterIndent)+name)
		case Parenthetical:
			lines = append(lines, pad(pdfParentheticalIndent)+wrapParens(el.Content))
		case Dialogue:
			lines = append(lines, pad(pdfDialogueIndent)+el.Content)
		case Transition:
			blank()
			lines = append(lines, pad(pdfTransitionIndent)+strings.ToUpper(el.Content))
			lines = append(lines, "")
		case Centered:
			blank()
			lines = append(lines, center(el.Content, pdfLineWidth))
			lines = append(lines, "")
		case PageBreak:
			lines = append(lines, PDFPageBreak)
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return pad((width-n)/2) + s
}
