package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	M "journeys/model"
	U "journeys/util"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
)

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"

	SheetJourneys = "Journeys"
	SheetFilters  = "Filters"
)

// JourneyReport is the combined answer of a journey listing and the filter values.
type JourneyReport struct {
	GeneratedAt     time.Time         `json:"generatedAt"`
	SnapshotVersion string            `json:"snapshotVersion"`
	Query           M.JourneyQuery    `json:"query"`
	Result          *M.JourneysResult `json:"result"`
	FilterValues    M.FilterValues    `json:"filters"`
}

func Write(w io.Writer, report *JourneyReport, format string) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, report)
	case FormatXLSX:
		return WriteXLSX(w, report)
	default:
		return fmt.Errorf("invalid report format %q", format)
	}
}

func WriteJSON(w io.Writer, report *JourneyReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

var journeyHeader = []interface{}{"sessionId", "journey", "touchpointCount", "firstChannel",
	"firstTouchpointAt", "lastChannel", "lastTouchpointAt"}

// WriteXLSX writes one row per journey and the filter values on a second sheet.
func WriteXLSX(w io.Writer, report *JourneyReport) error {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", SheetJourneys)

	if err := setRow(file, SheetJourneys, 1, journeyHeader); err != nil {
		return err
	}

	var journeys []*M.ProcessedJourney
	if report.Result != nil {
		journeys = report.Result.Journeys
	}
	for i, journey := range journeys {
		row := []interface{}{
			journey.SessionID,
			strings.Join(journey.Journey, " > "),
			journey.TouchpointCount,
			journey.FirstTouchpoint.Channel,
			journey.FirstTouchpoint.CreatedAt.Format(U.DATETIME_FORMAT_DB),
			journey.LastTouchpoint.Channel,
			journey.LastTouchpoint.CreatedAt.Format(U.DATETIME_FORMAT_DB),
		}
		if err := setRow(file, SheetJourneys, i+2, row); err != nil {
			return err
		}
	}

	file.NewSheet(SheetFilters)
	if err := setRow(file, SheetFilters, 1, []interface{}{"campaigns", "mediums", "contents"}); err != nil {
		return err
	}
	columns := [][]string{report.FilterValues.Campaigns, report.FilterValues.Mediums, report.FilterValues.Contents}
	for col, values := range columns {
		for i, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(SheetFilters, cell, value); err != nil {
				return err
			}
		}
	}

	return file.Write(w)
}

func setRow(file *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return file.SetSheetRow(sheet, cell, &values)
}
