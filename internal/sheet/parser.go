package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Parser converts a fetched export into a Table. The first row is the header.
type Parser interface {
	Parse(data []byte) (*Table, error)
}

// ParserFor returns the parser for a configured export format.
func ParserFor(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return CSVParser{}, nil
	case FormatXLSX:
		return XLSXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported sheet format: %q", format)
	}
}

// CSVParser reads comma-separated exports. Quoted fields may contain the
// delimiter, quotes, and newlines. Rows may have any number of fields.
type CSVParser struct {
	// Comma overrides the field delimiter (default ',').
	Comma rune
}

// Parse implements Parser. Blank rows that consist only of delimiters are kept;
// fully empty lines are skipped by encoding/csv.
func (p CSVParser) Parse(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(cleanText(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if p.Comma != 0 {
		r.Comma = p.Comma
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return newTable(rows), nil
}

// XLSXParser reads an .xlsx workbook export.
type XLSXParser struct {
	// Sheet names the worksheet to read. Empty means the first one.
	Sheet string
}

// Parse implements Parser.
func (p XLSXParser) Parse(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheet := p.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &Table{}, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: read %q: %w", sheet, err)
	}
	return newTable(rows), nil
}
