package chunker

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docbridge/internal/doctree"
	"github.com/dgallion1/docbridge/internal/headings"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     1,
	}
}

var subHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// block is a run of section text under one heading trail.
type block struct {
	trail []string
	text  string
}

// ChunkSections splits each section's Markdown at its sub-headings and packs
// the text under each heading into chunks. A chunk's breadcrumb is the
// document title (when set), the section title and the trail of sub-headings
// above the text. Heading lines themselves only appear in breadcrumbs.
func ChunkSections(docTitle string, sections []doctree.Section, cfg Config) []doctree.Chunk {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 4
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = def.MinChunk
	}

	chunks := []doctree.Chunk{}
	index := 0
	for si, sec := range sections {
		var base []string
		if docTitle != "" {
			base = append(base, docTitle)
		}
		if sec.Title != "" {
			base = append(base, sec.Title)
		}
		for _, b := range splitBlocks(sec.Content) {
			bc := append(copyBreadcrumb(base), b.trail...)
			for _, part := range packText(b.text, cfg) {
				if EstimateTokens(part) < cfg.MinChunk {
					continue
				}
				chunks = append(chunks, doctree.Chunk{
					Text:       part,
					Index:      index,
					Breadcrumb: copyBreadcrumb(bc),
					Section:    si,
				})
				index++
			}
		}
	}
	return chunks
}

// splitBlocks cuts Markdown at heading lines outside fenced code, tracking
// the heading trail by level.
func splitBlocks(markdown string) []block {
	type entry struct {
		level int
		text  string
	}
	var (
		out   []block
		stack []entry
		body  []string
		fence bool
	)
	trail := func() []string {
		t := make([]string, 0, len(stack))
		for _, e := range stack {
			t = append(t, e.text)
		}
		return t
	}
	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			out = append(out, block{trail: trail(), text: text})
		}
		body = body[:0]
	}

	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fence = !fence
		}
		if !fence {
			if m := subHeading.FindStringSubmatch(strings.TrimRight(line, "\r")); m != nil {
				flush()
				level := len(m[1])
				for len(stack) > 0 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack = append(stack, entry{level: level, text: headings.CleanText(m[2])})
				continue
			}
		}
		body = append(body, line)
	}
	flush()
	return out
}

// packText returns text whole when it fits, otherwise split with overlap.
func packText(text string, cfg Config) []string {
	if EstimateTokens(text) <= cfg.ChunkSize {
		return []string{text}
	}
	return splitText(text, cfg.ChunkSize, cfg.ChunkOverlap)
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// A paragraph over the target is split by sentences.
		if paraTokens > targetTokens {
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			result = append(result, splitBySentences(para, targetTokens, overlapTokens)...)
			continue
		}

		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

// splitByParagraphs splits on blank lines.
func splitByParagraphs(text string) []string {
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based chunks.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range splitSentences(text) {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
