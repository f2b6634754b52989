package bulkload

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// CSVAttributeSource streams attribute bags from a headered CSV export,
// such as the nutrient-data dump. The first column is the entity ID; every
// other column becomes one attribute field named after its header.
type CSVAttributeSource struct {
	reader *csv.Reader
	closer io.Closer
	kind   frontier.Kind
	header []string
	err    error
}

// NewCSVAttributeSource wraps the reader. The kind tags which attribute
// namespace the rows land in (typically recipe).
func NewCSVAttributeSource(r io.ReadCloser, kind frontier.Kind) (*CSVAttributeSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		_ = r.Close()
		return nil, fmt.Errorf("csv header needs an id column and at least one field")
	}
	return &CSVAttributeSource{
		reader: cr,
		closer: r,
		kind:   kind,
		header: header,
	}, nil
}

// Next advances to the next attribute row. Short records are padded by
// omission: missing trailing fields simply produce no attribute.
func (s *CSVAttributeSource) Next(_ context.Context) (Row, bool) {
	if s.err != nil {
		return Row{}, false
	}
	record, err := s.reader.Read()
	if err == io.EOF {
		return Row{}, false
	}
	if err != nil {
		s.err = fmt.Errorf("read csv record: %w", err)
		return Row{}, false
	}

	row := Row{
		Kind:  s.kind,
		ID:    strings.TrimSpace(record[0]),
		Attrs: make(map[string]string),
	}
	for i := 1; i < len(record) && i < len(s.header); i++ {
		value := strings.TrimSpace(record[i])
		if value == "" {
			continue
		}
		row.Attrs[strings.TrimSpace(s.header[i])] = value
	}
	return row, true
}

// Err reports the first failure hit while streaming.
func (s *CSVAttributeSource) Err() error { return s.err }

// Close releases the underlying reader.
func (s *CSVAttributeSource) Close() error {
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("close csv source: %w", err)
	}
	return nil
}
