package ingest

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	C "journeys/config"
	M "journeys/model"
	"journeys/services/disk"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRows = [][]interface{}{
	{"utm_source", "utm_campaign", "utm_medium", "utm_content", "sessionId", "createdAt"},
	{"organic", "", "", "", "s1", "2024-03-01T10:00:00Z"},
	{"email", "spring", "newsletter", "", "s1", "2024-03-01T10:05:00Z"},
	{"google", "spring", "cpc", "ad1", "s2", "2024-03-01T11:00:00Z"},
}

func writeSampleWorkbook(t *testing.T, dir, fileName, sheetName string) {
	f := excelize.NewFile()
	if sheetName != "Sheet1" {
		f.SetSheetName("Sheet1", sheetName)
	}
	for i, row := range sampleRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.Nil(t, err)
		values := row
		require.Nil(t, f.SetSheetRow(sheetName, cell, &values))
	}
	require.Nil(t, f.SaveAs(filepath.Join(dir, fileName)))
}

func writeSampleCSV(t *testing.T, dir, fileName string) {
	content := "utm_source,utm_campaign,utm_medium,utm_content,sessionId,createdAt\n" +
		"organic,,,,s1,2024-03-01T10:00:00Z\n" +
		"email,spring,newsletter,,s1,2024-03-01T10:05:00Z\n" +
		"google,spring,cpc,ad1,s2,2024-03-01T11:00:00Z\n"
	require.Nil(t, ioutil.WriteFile(filepath.Join(dir, fileName), []byte(content), 0644))
}

func assertSampleRaws(t *testing.T, raws []RawTouchpoint) {
	require.Len(t, raws, 3)
	assert.Equal(t, "organic", raws[0].Source)
	assert.Equal(t, "s1", raws[0].SessionID)
	assert.Equal(t, "spring", raws[1].Campaign)
	assert.Equal(t, "newsletter", raws[1].Medium)
	assert.Equal(t, "ad1", raws[2].Content)
	assert.Equal(t, "2024-03-01T11:00:00Z", raws[2].CreatedAt)
}

func TestFileReaderXLSX(t *testing.T) {
	dir := t.TempDir()
	writeSampleWorkbook(t, dir, "touchpoints.xlsx", "Sheet1")

	reader := NewFileReader(disk.New(dir), "", "touchpoints.xlsx", "")
	raws, err := reader.ReadRecords(context.Background())
	require.Nil(t, err)
	assertSampleRaws(t, raws)
	assert.Equal(t, dir+":touchpoints.xlsx", reader.Name())
}

func TestFileReaderXLSXNamedSheet(t *testing.T) {
	dir := t.TempDir()
	writeSampleWorkbook(t, dir, "touchpoints.xlsx", "Base")

	raws, err := NewFileReader(disk.New(dir), "", "touchpoints.xlsx", "Base").ReadRecords(context.Background())
	require.Nil(t, err)
	assertSampleRaws(t, raws)

	_, err = NewFileReader(disk.New(dir), "", "touchpoints.xlsx", "Missing").ReadRecords(context.Background())
	assert.NotNil(t, err)
}

func TestFileReaderCSV(t *testing.T) {
	dir := t.TempDir()
	writeSampleCSV(t, dir, "touchpoints.csv")

	raws, err := NewFileReader(disk.New(""), dir, "touchpoints.csv", "").ReadRecords(context.Background())
	require.Nil(t, err)
	assertSampleRaws(t, raws)
}

func TestFileReaderFailures(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, ioutil.WriteFile(filepath.Join(dir, "touchpoints.json"), []byte("[]"), 0644))
	require.Nil(t, ioutil.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a zip"), 0644))

	ctx := context.Background()
	_, err := NewFileReader(disk.New(dir), "", "missing.csv", "").ReadRecords(ctx)
	assert.NotNil(t, err)

	_, err = NewFileReader(disk.New(dir), "", "touchpoints.json", "").ReadRecords(ctx)
	assert.NotNil(t, err)

	_, err = NewFileReader(disk.New(dir), "", "broken.xlsx", "").ReadRecords(ctx)
	assert.NotNil(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewFileReader(disk.New(dir), "", "touchpoints.json", "").ReadRecords(cancelled)
	assert.Equal(t, context.Canceled, err)
}

func TestNewSourceFromConfigDisk(t *testing.T) {
	dir := t.TempDir()
	writeSampleCSV(t, dir, "touchpoints.csv")

	config := C.DefaultConfiguration()
	config.SourcePath = dir
	config.SourceFile = "touchpoints.csv"
	C.SetConfig(&config)

	source, err := NewSourceFromConfig(context.Background(), &config)
	require.Nil(t, err)

	result, err := source.Load(context.Background())
	require.Nil(t, err)
	assert.Len(t, result.Touchpoints, 3)
	assert.Equal(t, 0, result.SkippedRecords)
	assert.Nil(t, result.Touchpoints[0].Campaign)
	assert.Equal(t, "spring", M.StringValue(result.Touchpoints[1].Campaign))

	config.SourceType = "ftp"
	_, err = NewSourceFromConfig(context.Background(), &config)
	assert.True(t, M.IsIngestionFailure(err))
}
