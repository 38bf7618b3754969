package util

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// Datetime related utility functions.
// General convention for date Functions - suffix Z if utc based, In if timezone is passed.
const (
	DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"
	DATETIME_FORMAT_DB              string = "2006-01-02 15:04:05"
	DATETIME_FORMAT_ISO_NO_ZONE     string = "2006-01-02T15:04:05.999999999"
	// Rendering of date cells with the builtin "m/d/yy h:mm" spreadsheet format.
	DATETIME_FORMAT_SPREADSHEET string = "1/2/06 15:04"
)

// Spreadsheet serial dates count days from 1899-12-30.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial dates outside this range are treated as plain numbers.
const (
	minSpreadsheetSerial = 1
	maxSpreadsheetSerial = 2958465 // 9999-12-31
)

var ErrEmptyTimestamp = errors.New("empty timestamp")

// TimeNowZ Return current time in UTC. Should be used everywhere to avoid local timezone.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// GetTimeLocationFor Returns time.Location for given timezone, UTC when empty.
func GetTimeLocationFor(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}

// SpreadsheetSerialToTimeIn converts a spreadsheet serial date to a time in loc.
// Fractions are rounded to the nearest second.
func SpreadsheetSerialToTimeIn(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	seconds := math.Round((serial - days) * 86400)
	t := spreadsheetEpoch.AddDate(0, 0, int(days)).Add(time.Duration(seconds) * time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// ParseTimestampIn parses RFC3339 timestamps, zone-less ISO-8601 and database
// layouts, spreadsheet serial dates and the loose layouts understood by
// jinzhu/now. Values without an offset are interpreted in loc.
func ParseTimestampIn(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{DATETIME_FORMAT_ISO_NO_ZONE, DATETIME_FORMAT_DB, DATETIME_FORMAT_SPREADSHEET} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < minSpreadsheetSerial || serial > maxSpreadsheetSerial {
			return time.Time{}, errors.New("timestamp out of range")
		}
		return SpreadsheetSerialToTimeIn(serial, loc), nil
	}

	return now.New(time.Now().In(loc)).Parse(value)
}
