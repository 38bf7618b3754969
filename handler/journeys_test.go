package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	C "journeys/config"
	"journeys/ingest"
	M "journeys/model"
	"journeys/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu          sync.Mutex
	touchpoints []M.Touchpoint
	err         error
}

func (fs *fakeSource) Name() string {
	return "fake"
}

func (fs *fakeSource) Load(ctx context.Context) (*ingest.LoadResult, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.err != nil {
		return nil, fs.err
	}
	return &ingest.LoadResult{Touchpoints: fs.touchpoints}, nil
}

func touchpoint(sessionID, channel, campaign, medium, content string, minutes int) M.Touchpoint {
	return M.Touchpoint{
		Channel:   channel,
		Campaign:  M.StringPtr(campaign),
		Medium:    M.StringPtr(medium),
		Content:   M.StringPtr(content),
		SessionID: sessionID,
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func sampleTouchpoints() []M.Touchpoint {
	return []M.Touchpoint{
		touchpoint("s1", "organic", "spring", "cpc", "ad1", 0),
		touchpoint("s1", "email", "", "newsletter", "", 5),
		touchpoint("s1", "organic", "", "", "", 2),
		touchpoint("s1", "organic", "", "", "", 10),
		touchpoint("s2", "direct", "", "", "", 0),
		touchpoint("s2", "direct", "summer", "", "", 1),
	}
}

func setupTest(t *testing.T, source *fakeSource, build bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	config := C.DefaultConfiguration()
	C.SetConfig(&config)

	journeyStore, err := store.New(source, 2, 8, 0)
	require.Nil(t, err)
	if build {
		_, err = journeyStore.Rebuild(context.Background())
		require.Nil(t, err)
	}
	store.SetStore(journeyStore)
	t.Cleanup(func() { store.SetStore(nil) })

	return InitRouter()
}

func sendRequest(r *gin.Engine, method, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, nil)
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRootAndHealth(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	w := sendRequest(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, API_VERSION, body["version"])
	assert.Equal(t, "/journeys", body["endpoints"].(map[string]interface{})["journeys"])

	w = sendRequest(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, float64(2), body["totalJourneys"])
	assert.NotEmpty(t, body["snapshotVersion"])
	assert.Equal(t, float64(0), body["skippedRecords"])
}

func TestGetJourneys(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	w := sendRequest(r, http.MethodGet, "/journeys")
	assert.Equal(t, http.StatusOK, w.Code)

	var result M.JourneysResult
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Stats.TotalJourneys)
	assert.InDelta(t, 2.5, result.Stats.AverageTouchpoints, 1e-9)
	assert.Equal(t, 3, result.Stats.UniqueChannels)
	require.Len(t, result.Journeys, 2)
	assert.Equal(t, "s1", result.Journeys[0].SessionID)
	assert.Equal(t, []string{"organic", "email", "organic"}, result.Journeys[0].Journey)
	assert.Equal(t, 3, result.Journeys[0].TouchpointCount)
	assert.Equal(t, baseTime.Add(10*time.Minute), result.Journeys[0].LastTouchpoint.CreatedAt)
	assert.Equal(t, []string{"direct", "direct"}, result.Journeys[1].Journey)
}

func TestGetJourneysTouchpointJSON(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	w := sendRequest(r, http.MethodGet, "/journeys?campaign=summer")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	journeys := body["journeys"].([]interface{})
	require.Len(t, journeys, 1)
	first := journeys[0].(map[string]interface{})["firstTouchpoint"].(map[string]interface{})
	assert.Equal(t, "direct", first["channel"])
	assert.Nil(t, first["campaign"])
	assert.Equal(t, "s2", first["sessionId"])
	assert.Equal(t, "2024-03-01T10:00:00Z", first["created_at"])
}

func TestGetJourneysFilters(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	tests := []struct {
		name     string
		url      string
		expected []string
	}{
		{"empty values are absent", "/journeys?campaign=&medium=&content=", []string{"s1", "s2"}},
		{"campaign", "/journeys?campaign=spring", []string{"s1"}},
		{"medium", "/journeys?medium=newsletter", []string{"s1"}},
		{"content", "/journeys?content=ad1", []string{"s1"}},
		{"no match", "/journeys?campaign=winter", []string{}},
		{"search channel", "/journeys?search=DIRECT", []string{"s2"}},
		{"search session", "/journeys?search=s1", []string{"s1"}},
		{"filter and search", "/journeys?campaign=spring&search=direct", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sendRequest(r, http.MethodGet, tt.url)
			require.Equal(t, http.StatusOK, w.Code)

			var result M.JourneysResult
			require.Nil(t, json.Unmarshal(w.Body.Bytes(), &result))
			sessionIDs := make([]string, 0)
			for _, journey := range result.Journeys {
				sessionIDs = append(sessionIDs, journey.SessionID)
			}
			assert.Equal(t, tt.expected, sessionIDs)
			assert.Equal(t, len(tt.expected), result.Stats.TotalJourneys)
		})
	}
}

func TestGetJourneysEmptyResultStats(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	w := sendRequest(r, http.MethodGet, "/journeys?campaign=winter")
	body := decodeBody(t, w)
	assert.Equal(t, map[string]interface{}{
		"totalJourneys":      float64(0),
		"averageTouchpoints": float64(0),
		"uniqueChannels":     float64(0),
	}, body["stats"])
	assert.Equal(t, []interface{}{}, body["journeys"])
}

func TestGetJourneysSearchTooLong(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	long := make([]byte, MAX_SEARCH_TERM_LENGTH+1)
	for i := range long {
		long[i] = 'a'
	}
	w := sendRequest(r, http.MethodGet, "/journeys?search="+string(long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFilterValues(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, true)

	w := sendRequest(r, http.MethodGet, "/filters")
	assert.Equal(t, http.StatusOK, w.Code)

	var values M.FilterValues
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &values))
	assert.Equal(t, []string{"spring", "summer"}, values.Campaigns)
	assert.Equal(t, []string{"cpc", "newsletter"}, values.Mediums)
	assert.Equal(t, []string{"ad1"}, values.Contents)
}

func TestNotReady(t *testing.T) {
	r := setupTest(t, &fakeSource{touchpoints: sampleTouchpoints()}, false)

	for _, url := range []string{"/journeys", "/filters", "/health"} {
		w := sendRequest(r, http.MethodGet, url)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, url)
	}
}

func TestRefresh(t *testing.T) {
	source := &fakeSource{touchpoints: sampleTouchpoints()}
	r := setupTest(t, source, true)
	before := store.GetStore().Snapshot()

	w := sendRequest(r, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEqual(t, before.Version, body["snapshotVersion"])
	assert.Equal(t, float64(6), body["touchpointCount"])

	source.mu.Lock()
	source.err = M.NewIngestionFailure("fake", M.RecordValidationErrors{
		{Row: 4, Field: "sessionId", Message: "required"},
	})
	source.mu.Unlock()
	current := store.GetStore().Snapshot()

	w = sendRequest(r, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "Ingestion Failed", body["error"])
	assert.Len(t, body["invalidRecords"], 1)
	assert.Same(t, current, store.GetStore().Snapshot())

	w = sendRequest(r, http.MethodGet, "/journeys")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNotFound(t *testing.T) {
	r := setupTest(t, &fakeSource{}, false)

	w := sendRequest(r, http.MethodGet, "/unknown?x=1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Route not found", body["error"])
	assert.Contains(t, body["message"], "/unknown?x=1")
}

func TestGetErrorResponse(t *testing.T) {
	code, _ := getErrorResponse(store.ErrSnapshotNotReady)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, body := getErrorResponse(M.NewIngestionFailure("fake", errors.New("unreadable")))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Ingestion Failed", body["error"])

	code, body = getErrorResponse(M.NewInternalInvariantViolation("broken"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", body["error"])
}
