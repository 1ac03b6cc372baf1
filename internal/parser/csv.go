package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docbridge/internal/doctree"
)

// CSVParser turns a CSV file into a single table whose first record is the
// header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{Title: titleFromFilename(filename), Root: doctree.Doc()}
	if len(records) == 0 {
		return doc, nil
	}

	table := doctree.Table()
	for i, record := range records {
		row := doctree.TableRow()
		for _, field := range record {
			var content []*doctree.Node
			if field != "" {
				content = append(content, doctree.TextRun(field))
			}
			if i == 0 {
				row.Children = append(row.Children, doctree.HeaderCell(content...))
			} else {
				row.Children = append(row.Children, doctree.Cell(content...))
			}
		}
		table.Children = append(table.Children, row)
	}
	doc.Root.Children = append(doc.Root.Children, table)
	return doc, nil
}
