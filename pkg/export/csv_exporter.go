package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Sheet is an ordered table. Every row must have one cell per header.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// CSVOption configures a CSVExporter.
type CSVOption func(*CSVExporter)

// WithComma sets the field delimiter, e.g. ';' for spreadsheets in
// locales that use a decimal comma.
func WithComma(comma rune) CSVOption {
	return func(e *CSVExporter) {
		if comma != 0 {
			e.comma = comma
		}
	}
}

// WithCRLF terminates records with \r\n.
func WithCRLF() CSVOption {
	return func(e *CSVExporter) {
		e.crlf = true
	}
}

// CSVExporter renders sheets as CSV.
type CSVExporter struct {
	comma rune
	crlf  bool
}

// NewCSVExporter builds a CSV exporter. The default delimiter is ','.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{comma: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render encodes the sheet, header row first.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	writer.UseCRLF = e.crlf
	if err := writer.Write(sheet.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range sheet.Rows {
		if len(row) != len(sheet.Headers) {
			return nil, fmt.Errorf("csv row %d has %d cells, want %d", i+1, len(row), len(sheet.Headers))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
