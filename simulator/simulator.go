package simulator

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	log "github.com/sirupsen/logrus"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	SheetTouchpoints = "Touchpoints"
)

// Header matches the columns read by the ingest package.
var Header = []string{"utm_source", "utm_campaign", "utm_medium", "utm_content", "sessionId", "createdAt"}

// Row is a raw touchpoint record as written to the output file.
type Row struct {
	Source    string
	Campaign  string
	Medium    string
	Content   string
	SessionID string
	CreatedAt time.Time
}

func (r Row) values() []string {
	return []string{r.Source, r.Campaign, r.Medium, r.Content, r.SessionID,
		r.CreatedAt.UTC().Format(time.RFC3339)}
}

// Generate returns touchpoint rows in arrival order. Each session gets
// between 1 and MaxTouchpointsPerSession touchpoints; sessions interleave.
func Generate(config *Configuration) []Row {
	random := rand.New(rand.NewSource(config.Seed))
	channels := computeRangeMap(config.Channels)
	campaigns := computeRangeMap(config.Campaigns)
	mediums := computeRangeMap(config.Mediums)
	contents := computeRangeMap(config.Contents)

	rows := make([]Row, 0, config.Sessions)
	for s := 0; s < config.Sessions; s++ {
		sessionID := fmt.Sprintf("session_%05d", s+1)
		sessionStart := config.StartTime
		if config.SessionSpreadInSecs > 0 {
			sessionStart = sessionStart.Add(time.Duration(random.Int63n(config.SessionSpreadInSecs)) * time.Second)
		}

		numTouchpoints := 1 + random.Intn(config.MaxTouchpointsPerSession)
		sessionRows := make([]Row, numTouchpoints)
		createdAt := sessionStart
		for i := range sessionRows {
			sessionRows[i] = Row{
				Source:    channels.pick(random.Float64()),
				Campaign:  campaigns.pick(random.Float64()),
				Medium:    mediums.pick(random.Float64()),
				Content:   contents.pick(random.Float64()),
				SessionID: sessionID,
				CreatedAt: createdAt,
			}
			if config.TouchpointGapInSecs > 0 {
				createdAt = createdAt.Add(time.Duration(1+random.Int63n(config.TouchpointGapInSecs)) * time.Second)
			}
		}

		for i := 1; i < numTouchpoints; i++ {
			if random.Float64() < config.ShuffleProbability {
				sessionRows[i-1], sessionRows[i] = sessionRows[i], sessionRows[i-1]
			}
		}
		rows = append(rows, sessionRows...)
	}

	// Interleave sessions the way a tracking export would.
	random.Shuffle(len(rows), func(i, j int) {
		if rows[i].SessionID != rows[j].SessionID {
			rows[i], rows[j] = rows[j], rows[i]
		}
	})

	log.WithFields(log.Fields{"sessions": config.Sessions, "touchpoints": len(rows),
		"seed": config.Seed}).Info("Generated touchpoints.")
	return rows
}

func Write(w io.Writer, rows []Row, format string) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatCSV:
		return WriteCSV(w, rows)
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}

func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row.values()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteXLSX(w io.Writer, rows []Row) error {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", SheetTouchpoints)

	if err := setRow(file, 1, Header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(file, i+2, row.values()); err != nil {
			return err
		}
	}
	return file.Write(w)
}

func setRow(file *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return file.SetSheetRow(SheetTouchpoints, cell, &values)
}

// SessionCount returns distinct sessions in rows.
func SessionCount(rows []Row) int {
	sessionIDs := make(map[string]bool)
	for _, row := range rows {
		sessionIDs[row.SessionID] = true
	}
	return len(sessionIDs)
}
