package ingest

import (
	"fmt"
	"strings"
)

const (
	columnSource    = "source"
	columnCampaign  = "campaign"
	columnMedium    = "medium"
	columnContent   = "content"
	columnSessionID = "session_id"
	columnCreatedAt = "created_at"
)

// Header aliases, matched case-insensitively.
var columnAliases = map[string]string{
	"utm_source":   columnSource,
	"source":       columnSource,
	"channel":      columnSource,
	"utm_campaign": columnCampaign,
	"campaign":     columnCampaign,
	"utm_medium":   columnMedium,
	"medium":       columnMedium,
	"utm_content":  columnContent,
	"content":      columnContent,
	"sessionid":    columnSessionID,
	"session_id":   columnSessionID,
	"createdat":    columnCreatedAt,
	"created_at":   columnCreatedAt,
}

var requiredColumns = []string{columnSessionID, columnCreatedAt}

func normalizeHeader(header string) string {
	header = strings.TrimPrefix(header, "\ufeff")
	return strings.ToLower(strings.TrimSpace(header))
}

// GetColumnIndexes maps known columns to their position in the header row.
// The first occurrence of a column wins.
func GetColumnIndexes(header []string) (map[string]int, error) {
	indexes := make(map[string]int)
	for i, name := range header {
		column, known := columnAliases[normalizeHeader(name)]
		if !known {
			continue
		}
		if _, exists := indexes[column]; !exists {
			indexes[column] = i
		}
	}

	missing := make([]string, 0)
	for _, column := range requiredColumns {
		if _, exists := indexes[column]; !exists {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return indexes, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// RawTouchpointsFromRows converts a header row followed by data rows. Blank
// rows are ignored. Rows shorter than the header have empty trailing cells.
func RawTouchpointsFromRows(rows [][]string) ([]RawTouchpoint, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	indexes, err := GetColumnIndexes(rows[0])
	if err != nil {
		return nil, err
	}

	cell := func(row []string, column string) string {
		index, exists := indexes[column]
		if !exists || index >= len(row) {
			return ""
		}
		return row[index]
	}

	raws := make([]RawTouchpoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		raws = append(raws, RawTouchpoint{
			// Header is row 1.
			Row:       i + 2,
			Source:    cell(row, columnSource),
			Campaign:  cell(row, columnCampaign),
			Medium:    cell(row, columnMedium),
			Content:   cell(row, columnContent),
			SessionID: cell(row, columnSessionID),
			CreatedAt: cell(row, columnCreatedAt),
		})
	}
	return raws, nil
}
