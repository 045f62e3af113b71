/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pdfexport prints formatted screenplay text to PDF.
//
// Layout follows the usual US Letter screenplay page: Courier 12pt, ten
// characters per inch, six lines per inch, a 1.5in left margin and 55 lines of
// body text per page. Page numbers are printed top right from page two on.
package pdfexport

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"readyscript/internal/fountain"
	applog "readyscript/internal/log"
)

const (
	pointsPerInch = 72.0
	lineHeight    = 12.0
	fontSize      = 12.0
	leftMargin    = 1.5 * pointsPerInch
	topMargin     = 1.0 * pointsPerInch
)

// Options controls PDF export. Zero values take the defaults.
type Options struct {
	Title        string
	Author       string
	LinesPerPage int // default 55
	NoPageNumber bool
}

// Paginate splits PDF text into pages. Form feeds force a break; a break on an
// empty page is ignored. Blank lines at the top of a page are dropped.
func Paginate(text string, linesPerPage int) [][]string {
	if linesPerPage <= 0 {
		linesPerPage = 55
	}
	var pages [][]string
	var cur []string
	flush := func() {
		for len(cur) > 0 && strings.TrimSpace(cur[len(cur)-1]) == "" {
			cur = cur[:len(cur)-1]
		}
		if len(cur) > 0 {
			pages = append(pages, cur)
		}
		cur = nil
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line == fountain.PDFPageBreak {
			flush()
			continue
		}
		if len(cur) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		cur = append(cur, line)
		if len(cur) == linesPerPage {
			flush()
		}
	}
	flush()
	return pages
}

// Write renders elements and writes the PDF to w. It returns the page count.
func Write(w io.Writer, elements []fountain.Element, opt Options) (int, error) {
	pages := Paginate(fountain.ToPDFText(elements), opt.LinesPerPage)

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("ReadyScriptPro", false)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	// Core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Courier", "", fontSize)

	if len(pages) == 0 {
		pdf.AddPage()
	}
	pageW, _ := pdf.GetPageSize()
	for i, lines := range pages {
		pdf.AddPage()
		if i > 0 && !opt.NoPageNumber {
			num := fmt.Sprintf("%d.", i+1)
			pdf.Text(pageW-pointsPerInch-pdf.GetStringWidth(num), topMargin/2, num)
		}
		y := topMargin + lineHeight
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				pdf.Text(leftMargin, y, tr(line))
			}
			y += lineHeight
		}
	}
	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	return max(len(pages), 1), nil
}

// WriteFile renders elements to path, creating the parent directory.
func WriteFile(path string, elements []fountain.Element, opt Options) (int, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("ensure out dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create pdf: %w", err)
	}
	n, err := Write(f, elements, opt)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close pdf: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	applog.WithComponent("pdfexport").Info("pdf written", slog.String("path", path), slog.Int("pages", n))
	return n, nil
}
