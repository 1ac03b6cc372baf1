// Package textlines rebuilds reading-order text lines from positioned text
// fragments such as the glyph runs a PDF content stream produces.
package textlines

import (
	"math"
	"strings"
)

// Fragment is a run of extracted text with its layout metadata.
type Fragment struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
	Y        float64 `json:"y"`    // vertical position on the page
	Page     int     `json:"page"` // page index
}

// Line is a reconstructed line of text.
type Line struct {
	Text     string
	Page     int
	Y        float64 // vertical position of the line's first fragment
	FontSize float64 // largest fragment font size on the line
}

// Options tunes line breaking.
type Options struct {
	// LineGap is the vertical distance, as a fraction of the fragment's font
	// size, beyond which a fragment starts a new line.
	LineGap float64
}

// DefaultOptions breaks lines when the baseline moves more than half a
// font size.
func DefaultOptions() Options {
	return Options{LineGap: 0.5}
}

// Reconstruct returns the non-empty, trimmed text lines of frags, in input order.
func Reconstruct(frags []Fragment, opts Options) []string {
	lines := ReconstructLines(frags, opts)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

// ReconstructLines is Reconstruct keeping each line's page and font size.
// A fragment opens a new line when its page differs from the previous
// fragment's or when its vertical distance from the previous fragment exceeds
// LineGap times its own font size; otherwise its text is appended to the
// current line with no separator.
func ReconstructLines(frags []Fragment, opts Options) []Line {
	if opts.LineGap <= 0 {
		opts = DefaultOptions()
	}
	var (
		out      []Line
		buf      strings.Builder
		cur      Line
		prevY    float64
		prevPage int
	)

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			cur.Text = text
			out = append(out, cur)
		}
		buf.Reset()
	}

	for i, f := range frags {
		if i > 0 {
			delta := math.Abs(f.Y - prevY)
			if f.Page != prevPage || delta > opts.LineGap*f.FontSize {
				flush()
			}
		}
		if buf.Len() == 0 {
			cur = Line{Page: f.Page, Y: f.Y}
		}
		buf.WriteString(f.Text)
		if f.FontSize > cur.FontSize {
			cur.FontSize = f.FontSize
		}
		prevY = f.Y
		prevPage = f.Page
	}
	flush()
	return out
}

// Join concatenates lines with newlines.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}
