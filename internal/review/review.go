// Package review computes the diffs shown when an edit is staged for
// approval.
package review

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// Options control unified diff output.
type Options struct {
	FromLabel string
	ToLabel   string
	Context   int // lines of context around each change
}

func DefaultOptions() Options {
	return Options{FromLabel: "before", ToLabel: "after", Context: 3}
}

// Result is a line diff between two Markdown texts.
type Result struct {
	Unified string `json:"unified"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Changed bool   `json:"changed"`
}

// Diff compares two Markdown texts line by line. Identical inputs produce an
// empty unified diff.
func Diff(before, after string, opts Options) (Result, error) {
	a := difflib.SplitLines(before)
	b := difflib.SplitLines(after)

	var res Result
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			res.Removed += op.I2 - op.I1
			res.Added += op.J2 - op.J1
		case 'd':
			res.Removed += op.I2 - op.I1
		case 'i':
			res.Added += op.J2 - op.J1
		}
	}
	res.Changed = res.Added > 0 || res.Removed > 0
	if !res.Changed {
		return res, nil
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: opts.FromLabel,
		ToFile:   opts.ToLabel,
		Context:  opts.Context,
	})
	if err != nil {
		return Result{}, fmt.Errorf("unified diff: %w", err)
	}
	res.Unified = unified
	return res, nil
}

// Status describes how a section changed between two versions.
type Status string

const (
	StatusAdded     Status = "added"
	StatusRemoved   Status = "removed"
	StatusModified  Status = "modified"
	StatusUnchanged Status = "unchanged"
)

// SectionChange is the review status of one section.
type SectionChange struct {
	Title  string `json:"title"`
	Status Status `json:"status"`
	Diff   string `json:"diff,omitempty"`
}

// DiffSections pairs sections by title. Repeated titles pair in order of
// appearance. Changes are listed in the order of after, followed by the
// sections that were removed.
func DiffSections(before, after []doctree.Section) ([]SectionChange, error) {
	pending := make(map[string][]int)
	for i, s := range before {
		pending[s.Title] = append(pending[s.Title], i)
	}
	matched := make([]bool, len(before))

	var out []SectionChange
	for _, s := range after {
		idx := pending[s.Title]
		if len(idx) == 0 {
			out = append(out, SectionChange{Title: s.Title, Status: StatusAdded})
			continue
		}
		prev := before[idx[0]]
		pending[s.Title] = idx[1:]
		matched[idx[0]] = true

		if prev.Content == s.Content {
			out = append(out, SectionChange{Title: s.Title, Status: StatusUnchanged})
			continue
		}
		opts := DefaultOptions()
		opts.FromLabel = s.Title + " (before)"
		opts.ToLabel = s.Title + " (after)"
		res, err := Diff(prev.Content, s.Content, opts)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", s.Title, err)
		}
		out = append(out, SectionChange{Title: s.Title, Status: StatusModified, Diff: res.Unified})
	}
	for i, s := range before {
		if !matched[i] {
			out = append(out, SectionChange{Title: s.Title, Status: StatusRemoved})
		}
	}
	return out, nil
}
