/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// listing accumulates the rows of one CLI table. Missing cells render empty;
// extra cells are dropped.
type listing struct {
	headers []string
	right   map[int]bool
	rows    []table.Row
}

func newListing(headers ...string) *listing {
	return &listing{headers: headers, right: map[int]bool{}}
}

// alignRight right-aligns the named columns, typically counts.
func (l *listing) alignRight(headers ...string) *listing {
	for i, h := range l.headers {
		for _, want := range headers {
			if strings.EqualFold(h, want) {
				l.right[i] = true
			}
		}
	}
	return l
}

func (l *listing) add(cells ...string) {
	row := make(table.Row, len(l.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	l.rows = append(l.rows, row)
}

func (l *listing) String() string {
	if len(l.headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(l.headers))
	for i, h := range l.headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	tw.AppendRows(l.rows)

	configs := make([]table.ColumnConfig, 0, len(l.headers))
	for i := range l.headers {
		cfg := table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if l.right[i] {
			cfg.Align = text.AlignRight
		}
		configs = append(configs, cfg)
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// properties renders label/value pairs, skipping pairs with an empty value.
func properties(pairs ...string) string {
	l := newListing("Field", "Value")
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		l.add(pairs[i], pairs[i+1])
	}
	return l.String()
}
