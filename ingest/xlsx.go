package ingest

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
)

// ReadXLSXRows returns the rows of sheetName, or of the first sheet when
// sheetName is empty.
func ReadXLSXRows(reader io.Reader, sheetName string) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %v", err)
	}

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %v", sheetName, err)
	}
	return rows, nil
}
