package importer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVImporter handles CSV files. The first record is the header row and
// the whole file becomes one GFM table.
type CSVImporter struct{}

func (p *CSVImporter) Import(r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var b builder
	b.table(records[0], records[1:])
	return b.String(), nil
}
