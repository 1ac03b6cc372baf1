// Command docbridge converts documents from the command line: any supported
// source to Markdown, Markdown to sections, anchors or HTML, and diffs
// between two Markdown versions.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/dgallion1/docbridge/internal/chunker"
	"github.com/dgallion1/docbridge/internal/headings"
	"github.com/dgallion1/docbridge/internal/parser"
	"github.com/dgallion1/docbridge/internal/render"
	"github.com/dgallion1/docbridge/internal/review"
	"github.com/dgallion1/docbridge/internal/sections"
	"github.com/dgallion1/docbridge/internal/serialize"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `docbridge converts documents between sources, Markdown and the editor tree.

Usage:
  docbridge <command> [flags] <args>

Commands:
  convert <file>               convert a .txt/.md/.csv/.html/.pdf/.docx file to Markdown
  sections <file.md>           split Markdown into titled sections (JSON)
  headings <file.md>           list level 2-4 headings with anchors (JSON)
  chunks <file.md>             split Markdown into retrieval chunks (JSON)
  html <file.md>               render Markdown to HTML with heading anchors
  diff <before.md> <after.md>  unified diff between two Markdown files

Markdown arguments may be "-" to read standard input.
`

var errUsage = errors.New("usage")

// command is one subcommand. args excludes the command name.
type command struct {
	flags *pflag.FlagSet
	nargs int
	run   func(args []string) error
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}

	var verbose bool
	newFlags := func(name string) *pflag.FlagSet {
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.BoolVarP(&verbose, "verbose", "v", false, "log timings to stderr")
		return fs
	}
	logger := func() *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	}
	readInput := func(path string) ([]byte, error) {
		if path == "-" {
			return io.ReadAll(stdin)
		}
		return os.ReadFile(path)
	}
	writeJSON := func(v any) error {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	commands := map[string]*command{}

	// convert
	{
		fs := newFlags("convert")
		asTree := fs.Bool("tree", false, "print the editor tree as JSON instead of Markdown")
		lineGap := fs.Float64("line-gap", 0.5, "PDF line break threshold as a fraction of font size")
		readability := fs.Bool("readability", false, "extract the main article from HTML first")
		pdftotext := fs.Bool("pdftotext", false, "fall back to pdftotext when PDF text extraction fails")
		commands["convert"] = &command{flags: fs, nargs: 1, run: func(args []string) error {
			p, err := parser.ForFile(args[0], parser.Options{
				LineGap:              *lineGap,
				Readability:          *readability,
				PDFFallbackPdftotext: *pdftotext,
			})
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			start := time.Now()
			doc, err := p.Parse(bytes.NewReader(data), args[0])
			if err != nil {
				return fmt.Errorf("convert %s: %w", args[0], err)
			}
			logger().Debug("converted", "file", args[0], "title", doc.Title, "took", time.Since(start))
			if *asTree {
				return writeJSON(map[string]any{"title": doc.Title, "tree": doc.Root})
			}
			_, err = io.WriteString(stdout, serialize.Markdown(doc.Root))
			return err
		}}
	}

	// sections
	{
		fs := newFlags("sections")
		fallback := fs.String("fallback-title", sections.DefaultTitle, "title used when there are no level 1 or 2 headings")
		commands["sections"] = &command{flags: fs, nargs: 1, run: func(args []string) error {
			md, err := readInput(args[0])
			if err != nil {
				return err
			}
			return writeJSON(sections.Split(string(md), *fallback))
		}}
	}

	// headings
	{
		fs := newFlags("headings")
		commands["headings"] = &command{flags: fs, nargs: 1, run: func(args []string) error {
			md, err := readInput(args[0])
			if err != nil {
				return err
			}
			return writeJSON(headings.Extract(string(md)))
		}}
	}

	// chunks
	{
		fs := newFlags("chunks")
		title := fs.String("title", "", "document title prepended to breadcrumbs")
		size := fs.Int("chunk-size", chunker.DefaultConfig().ChunkSize, "target chunk size in tokens")
		overlap := fs.Int("overlap", chunker.DefaultConfig().ChunkOverlap, "overlap between chunks in tokens")
		fallback := fs.String("fallback-title", sections.DefaultTitle, "section title used when there are no level 1 or 2 headings")
		commands["chunks"] = &command{flags: fs, nargs: 1, run: func(args []string) error {
			md, err := readInput(args[0])
			if err != nil {
				return err
			}
			secs := sections.Split(string(md), *fallback)
			return writeJSON(chunker.ChunkSections(*title, secs, chunker.Config{ChunkSize: *size, ChunkOverlap: *overlap}))
		}}
	}

	// html
	{
		fs := newFlags("html")
		commands["html"] = &command{flags: fs, nargs: 1, run: func(args []string) error {
			md, err := readInput(args[0])
			if err != nil {
				return err
			}
			out, err := render.HTML(string(md))
			if err != nil {
				return err
			}
			_, err = io.WriteString(stdout, out)
			return err
		}}
	}

	// diff
	{
		fs := newFlags("diff")
		ctxLines := fs.IntP("context", "U", 3, "lines of context")
		bySection := fs.Bool("sections", false, "report per-section changes as JSON")
		fallback := fs.String("fallback-title", sections.DefaultTitle, "section title used when there are no level 1 or 2 headings")
		commands["diff"] = &command{flags: fs, nargs: 2, run: func(args []string) error {
			before, err := readInput(args[0])
			if err != nil {
				return err
			}
			after, err := readInput(args[1])
			if err != nil {
				return err
			}
			if *bySection {
				changes, err := review.DiffSections(
					sections.Split(string(before), *fallback),
					sections.Split(string(after), *fallback),
				)
				if err != nil {
					return err
				}
				return writeJSON(changes)
			}
			res, err := review.Diff(string(before), string(after), review.Options{
				FromLabel: args[0],
				ToLabel:   args[1],
				Context:   *ctxLines,
			})
			if err != nil {
				return err
			}
			logger().Debug("diff", "added", res.Added, "removed", res.Removed)
			_, err = io.WriteString(stdout, res.Unified)
			return err
		}}
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err := cmd.flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := cmd.flags.Args()
	if len(rest) != cmd.nargs {
		return fmt.Errorf("%s: expected %d argument(s), got %d: %s", args[0], cmd.nargs, len(rest), strings.Join(rest, " "))
	}
	return cmd.run(rest)
}
