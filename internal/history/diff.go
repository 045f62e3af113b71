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
)

// GenerateDiff compares oldContent and newContent line by line at equal
// positions (1-based). Lines past the end of the old text are added, lines past
// the end of the new text are deleted. There is no alignment: inserting a line
// near the top reports every later line as modified.
func GenerateDiff(oldContent, newContent string) VersionDiff {
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")
	d := VersionDiff{
		Added:     []DiffLine{},
		Deleted:   []DiffLine{},
		Modified:  []ModifiedLine{},
		Unchanged: []DiffLine{},
	}
	n := max(len(oldLines), len(newLines))
	for i := 0; i < n; i++ {
		line := i + 1
		switch {
		case i >= len(oldLines):
			d.Added = append(d.Added, DiffLine{Line: line, Content: newLines[i]})
		case i >= len(newLines):
			d.Deleted = append(d.Deleted, DiffLine{Line: line, Content: oldLines[i]})
		case oldLines[i] != newLines[i]:
			d.Modified = append(d.Modified, ModifiedLine{Line: line, OldContent: oldLines[i], NewContent: newLines[i]})
		default:
			d.Unchanged = append(d.Unchanged, DiffLine{Line: line, Content: oldLines[i]})
		}
	}
	return d
}

// HasChanges reports whether d has any added, deleted or modified line.
func (d VersionDiff) HasChanges() bool {
	return len(d.Added)+len(d.Deleted)+len(d.Modified) > 0
}

// Changes folds the diff into VersionChanges, one per run of consecutive lines
// of the same kind, ordered by line.
func (d VersionDiff) Changes() []VersionChange {
	out := []VersionChange{}
	// The buckets are each sorted by line and the three change buckets cover
	// disjoint line ranges, so a merge by line keeps output ordered.
	type item struct {
		typ      ChangeType
		line     int
		old, new string
	}
	var items []item
	ai, di, mi := 0, 0, 0
	for ai < len(d.Added) || di < len(d.Deleted) || mi < len(d.Modified) {
		next := item{line: -1}
		if mi < len(d.Modified) {
			m := d.Modified[mi]
			next = item{typ: ChangeModified, line: m.Line, old: m.OldContent, new: m.NewContent}
		}
		if di < len(d.Deleted) && (next.line < 0 || d.Deleted[di].Line < next.line) {
			next = item{typ: ChangeDeleted, line: d.Deleted[di].Line, old: d.Deleted[di].Content}
		}
		if ai < len(d.Added) && (next.line < 0 || d.Added[ai].Line < next.line) {
			next = item{typ: ChangeAdded, line: d.Added[ai].Line, new: d.Added[ai].Content}
		}
		switch next.typ {
		case ChangeModified:
			mi++
		case ChangeDeleted:
			di++
		case ChangeAdded:
			ai++
		}
		items = append(items, next)
	}

	for i := 0; i < len(items); {
		j := i
		var olds, news []string
		for j < len(items) && items[j].typ == items[i].typ && items[j].line == items[i].line+(j-i) {
			if items[j].typ != ChangeAdded {
				olds = append(olds, items[j].old)
			}
			if items[j].typ != ChangeDeleted {
				news = append(news, items[j].new)
			}
			j++
		}
		c := VersionChange{
			Type:       items[i].typ,
			LineStart:  items[i].line,
			LineEnd:    items[j-1].line,
			OldContent: strings.Join(olds, "\n"),
			NewContent: strings.Join(news, "\n"),
		}
		c.Description = describe(c)
		out = append(out, c)
		i = j
	}
	return out
}

func describe(c VersionChange) string {
	verb := map[ChangeType]string{ChangeAdded: "Added", ChangeDeleted: "Deleted", ChangeModified: "Modified"}[c.Type]
	if c.LineStart == c.LineEnd {
		return fmt.Sprintf("%s line %d", verb, c.LineStart)
	}
	return fmt.Sprintf("%s lines %d-%d", verb, c.LineStart, c.LineEnd)
}
