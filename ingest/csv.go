package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSVRows reads every record of a comma separated export. Records may
// have a varying number of fields.
func ReadCSVRows(reader io.Reader) ([][]string, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %v", err)
	}
	return rows, nil
}
