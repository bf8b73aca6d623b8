package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one data line of the inspections CSV.
type Row struct {
	Line  int
	Cells RawRow
}

// CSVReader streams rows keyed by the header line.
type CSVReader struct {
	r      *csv.Reader
	header []string
}

func NewCSVReader(src io.Reader) (*CSVReader, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	return &CSVReader{r: r, header: header}, nil
}

// Next returns the next row, or io.EOF at the end of input. A *csv.ParseError
// affects only its own line; reading may continue.
func (c *CSVReader) Next() (Row, error) {
	record, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, err
	}

	line, _ := c.r.FieldPos(0)
	cells := make(RawRow, len(c.header))
	for i, col := range c.header {
		if i >= len(record) {
			break
		}
		cells[col] = record[i]
	}
	return Row{Line: line, Cells: cells}, nil
}
