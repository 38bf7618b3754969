package simulator

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	C "journeys/config"
	"journeys/ingest"
	M "journeys/model"
	"journeys/services/disk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *Configuration {
	config := DefaultConfiguration()
	config.Sessions = 20
	return &config
}

func TestValidate(t *testing.T) {
	config := DefaultConfiguration()
	assert.Nil(t, config.Validate())

	config.Channels = ProbabilityMap{"google": 0.5}
	assert.NotNil(t, config.Validate())

	config = DefaultConfiguration()
	config.Mediums = ProbabilityMap{}
	assert.NotNil(t, config.Validate())

	config = DefaultConfiguration()
	config.Sessions = 0
	assert.NotNil(t, config.Validate())
}

func TestRangeMapPick(t *testing.T) {
	rm := computeRangeMap(ProbabilityMap{"a": 0.25, "b": 0, "c": 0.75})
	assert.Equal(t, "a", rm.pick(0))
	assert.Equal(t, "a", rm.pick(0.2))
	assert.Equal(t, "c", rm.pick(0.25))
	assert.Equal(t, "c", rm.pick(0.99))
	assert.Equal(t, "c", rm.pick(1))
}

func TestGenerateIsDeterministic(t *testing.T) {
	first := Generate(smallConfig())
	second := Generate(smallConfig())
	assert.Equal(t, first, second)
	assert.Equal(t, 20, SessionCount(first))

	other := smallConfig()
	other.Seed = 2
	assert.NotEqual(t, first, Generate(other))
}

func TestGenerateBounds(t *testing.T) {
	config := smallConfig()
	rows := Generate(config)

	perSession := make(map[string]int)
	for _, row := range rows {
		perSession[row.SessionID]++
		assert.Contains(t, config.Channels, row.Source)
		assert.False(t, row.CreatedAt.Before(config.StartTime))
	}
	for _, count := range perSession {
		assert.GreaterOrEqual(t, count, 1)
		assert.LessOrEqual(t, count, config.MaxTouchpointsPerSession)
	}
}

func TestGeneratedFilesAreIngestible(t *testing.T) {
	rows := Generate(smallConfig())

	for _, format := range []string{FormatXLSX, FormatCSV} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			var buf bytes.Buffer
			require.Nil(t, Write(&buf, rows, format))
			fileName := "touchpoints." + format
			require.Nil(t, ioutil.WriteFile(filepath.Join(dir, fileName), buf.Bytes(), 0644))

			reader := ingest.NewFileReader(disk.New(dir), "", fileName, "")
			loader := ingest.NewLoader(reader, C.RecordPolicyReject, nil)
			result, err := loader.Load(context.Background())
			require.Nil(t, err)
			require.Len(t, result.Touchpoints, len(rows))

			for i, touchpoint := range result.Touchpoints {
				assert.Equal(t, rows[i].SessionID, touchpoint.SessionID)
				assert.True(t, rows[i].CreatedAt.Equal(touchpoint.CreatedAt))
				if rows[i].Source == "" {
					assert.Equal(t, M.ChannelUnknown, touchpoint.Channel)
				} else {
					assert.Equal(t, rows[i].Source, touchpoint.Channel)
				}
				assert.Equal(t, rows[i].Campaign, M.StringValue(touchpoint.Campaign))
			}

			journeys, err := M.ProcessJourneys(result.Touchpoints, 4)
			require.Nil(t, err)
			assert.Len(t, journeys, SessionCount(rows))
		})
	}

	assert.NotNil(t, Write(&bytes.Buffer{}, rows, "json"))
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simulator.yaml")
	raw := []byte(`
seed: 7
sessions: 5
channels:
  google: 0.5
  email: 0.5
`)
	require.Nil(t, ioutil.WriteFile(path, raw, 0644))

	config, err := LoadConfigFromFile(path)
	require.Nil(t, err)
	assert.Equal(t, int64(7), config.Seed)
	assert.Equal(t, 5, config.Sessions)
	assert.Equal(t, ProbabilityMap{"google": 0.5, "email": 0.5}, config.Channels)
	assert.Equal(t, DefaultConfiguration().Mediums, config.Mediums)
}
