package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"journeys/cache"
	cacheRedis "journeys/cache/redis"
	C "journeys/config"
	"journeys/ingest"
	M "journeys/model"
	U "journeys/util"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

const (
	cachePrefixJourneys = "journeys:list"
)

var ErrSnapshotNotReady = errors.New("journey snapshot not built yet")

var journeyStore *JourneyStore

// SetStore installs the store served by the handlers.
func SetStore(store *JourneyStore) {
	journeyStore = store
}

func GetStore() *JourneyStore {
	return journeyStore
}

// Snapshot is an immutable journey set built from one source load.
type Snapshot struct {
	// Version is unique per build.
	Version string `json:"snapshotVersion"`
	// Fingerprint identifies the touchpoint data. Equal data gives equal fingerprints.
	Fingerprint     string                `json:"fingerprint"`
	BuiltAt         time.Time             `json:"builtAt"`
	Journeys        []*M.ProcessedJourney `json:"-"`
	FilterValues    M.FilterValues        `json:"-"`
	TouchpointCount int                   `json:"touchpointCount"`
	SkippedRecords  int                   `json:"skippedRecords"`
}

func (s *Snapshot) TotalJourneys() int {
	return len(s.Journeys)
}

// JourneyStore builds journey snapshots from a source and serves queries from
// the latest published one. Readers never observe a partially built snapshot.
type JourneyStore struct {
	source            ingest.Source
	numRoutines       int
	cacheExpiryInSecs float64

	snapshot    atomic.Value
	rebuildLock sync.Mutex
	queryCache  *lru.Cache
}

// New returns a store without a snapshot. A queryCacheSize of zero disables
// the in-process query cache.
func New(source ingest.Source, numRoutines, queryCacheSize int, queryCacheExpiryInSecs float64) (*JourneyStore, error) {
	if source == nil {
		return nil, errors.New("nil touchpoint source")
	}

	store := &JourneyStore{
		source:            source,
		numRoutines:       numRoutines,
		cacheExpiryInSecs: queryCacheExpiryInSecs,
	}

	if queryCacheSize > 0 {
		queryCache, err := lru.New(queryCacheSize)
		if err != nil {
			return nil, err
		}
		store.queryCache = queryCache
	}

	return store, nil
}

func NewFromConfig(source ingest.Source) (*JourneyStore, error) {
	config := C.GetConfig()
	if config == nil {
		return nil, errors.New("config not initialized")
	}
	return New(source, config.NumSessionRoutines, config.QueryCacheSize, config.QueryCacheExpiryInSecs)
}

// Snapshot returns the published snapshot or nil before the first build.
func (js *JourneyStore) Snapshot() *Snapshot {
	snapshot, _ := js.snapshot.Load().(*Snapshot)
	return snapshot
}

// Rebuild loads the source, processes every session and publishes the result.
// On failure the previously published snapshot stays in place.
func (js *JourneyStore) Rebuild(ctx context.Context) (*Snapshot, error) {
	js.rebuildLock.Lock()
	defer js.rebuildLock.Unlock()

	logCtx := log.WithField("source", js.source.Name())
	startTime := U.TimeNowZ()

	result, err := js.source.Load(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load touchpoints. Keeping previous snapshot.")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	journeys, err := M.ProcessJourneys(result.Touchpoints, js.numRoutines)
	if err != nil {
		logCtx.WithError(err).Error("Failed to process journeys. Keeping previous snapshot.")
		return nil, err
	}

	if err := verifyJourneys(journeys, len(result.Touchpoints)); err != nil {
		logCtx.WithError(err).Error("Journey set failed verification. Keeping previous snapshot.")
		return nil, err
	}

	fingerprint, err := GetTouchpointsFingerprint(result.Touchpoints)
	if err != nil {
		logCtx.WithError(err).Error("Failed to fingerprint touchpoints.")
		return nil, err
	}

	snapshot := &Snapshot{
		Version:         xid.New().String(),
		Fingerprint:     fingerprint,
		BuiltAt:         U.TimeNowZ(),
		Journeys:        journeys,
		FilterValues:    M.GetFilterValues(journeys),
		TouchpointCount: len(result.Touchpoints),
		SkippedRecords:  result.SkippedRecords,
	}
	js.snapshot.Store(snapshot)

	if js.queryCache != nil {
		js.queryCache.Purge()
	}

	logCtx.WithFields(log.Fields{
		"snapshot_version": snapshot.Version,
		"journeys":         len(journeys),
		"touchpoints":      snapshot.TouchpointCount,
		"skipped_records":  snapshot.SkippedRecords,
		"time_taken_in_ms": time.Since(startTime).Milliseconds(),
	}).Info("Published journey snapshot.")

	return snapshot, nil
}

// verifyJourneys checks assembler output before it is published.
func verifyJourneys(journeys []*M.ProcessedJourney, numTouchpoints int) error {
	total := 0
	for _, journey := range journeys {
		if journey == nil {
			return M.NewInternalInvariantViolation("nil journey in result")
		}
		n := len(journey.Touchpoints)
		if n == 0 || n != len(journey.Journey) || n != journey.TouchpointCount {
			return M.NewInternalInvariantViolation("inconsistent sequences for session %q", journey.SessionID)
		}
		if journey.FirstTouchpoint == nil || journey.LastTouchpoint == nil {
			return M.NewInternalInvariantViolation("missing endpoints for session %q", journey.SessionID)
		}
		total += n
	}

	if total > numTouchpoints {
		return M.NewInternalInvariantViolation("journeys hold %d touchpoints, source had %d", total, numTouchpoints)
	}
	return nil
}

// GetTouchpointsFingerprint hashes the normalized touchpoints in arrival order.
func GetTouchpointsFingerprint(touchpoints []M.Touchpoint) (string, error) {
	raw, err := json.Marshal(touchpoints)
	if err != nil {
		return "", err
	}
	return U.HashKeyUsingSha256Checksum(string(raw)), nil
}

// ListJourneys answers a query from a single snapshot. The result may be
// shared with other callers and must not be modified.
func (js *JourneyStore) ListJourneys(query M.JourneyQuery) (*M.JourneysResult, error) {
	snapshot := js.Snapshot()
	if snapshot == nil {
		return nil, ErrSnapshotNotReady
	}

	queryKey := query.CacheKey()
	lruKey := snapshot.Version + ":" + queryKey
	if js.queryCache != nil {
		if cached, ok := js.queryCache.Get(lruKey); ok {
			if result, ok := cached.(*M.JourneysResult); ok {
				return result, nil
			}
		}
	}

	result, found := js.getResultFromRedis(snapshot, queryKey)
	if !found {
		result = M.ListJourneys(snapshot.Journeys, query)
		js.setResultInRedis(snapshot, queryKey, result)
	}

	if js.queryCache != nil {
		js.queryCache.Add(lruKey, result)
	}
	return result, nil
}

func (js *JourneyStore) getResultFromRedis(snapshot *Snapshot, queryKey string) (*M.JourneysResult, bool) {
	if !C.IsRedisEnabled() {
		return nil, false
	}

	logCtx := log.WithField("fingerprint", snapshot.Fingerprint).WithField("query", queryKey)
	key, err := cache.NewKey(snapshot.Fingerprint, cachePrefixJourneys, queryKey)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create cache key.")
		return nil, false
	}

	value, found, err := cacheRedis.GetIfExists(key)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to get journeys from redis.")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var result M.JourneysResult
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		logCtx.WithError(err).Warn("Failed to unmarshal cached journeys.")
		return nil, false
	}
	for _, journey := range result.Journeys {
		relinkEndpoints(journey)
	}
	return &result, true
}

func (js *JourneyStore) setResultInRedis(snapshot *Snapshot, queryKey string, result *M.JourneysResult) {
	if !C.IsRedisEnabled() {
		return
	}

	logCtx := log.WithField("fingerprint", snapshot.Fingerprint).WithField("query", queryKey)
	key, err := cache.NewKey(snapshot.Fingerprint, cachePrefixJourneys, queryKey)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create cache key.")
		return
	}

	value, err := json.Marshal(result)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal journeys for cache.")
		return
	}

	if err := cacheRedis.Set(key, string(value), js.cacheExpiryInSecs); err != nil {
		logCtx.WithError(err).Warn("Failed to set journeys in redis.")
	}
}

// relinkEndpoints points first and last touchpoint back into the sequence
// after decoding.
func relinkEndpoints(journey *M.ProcessedJourney) {
	if journey == nil || len(journey.Touchpoints) == 0 {
		return
	}
	journey.FirstTouchpoint = &journey.Touchpoints[0]
	journey.LastTouchpoint = &journey.Touchpoints[len(journey.Touchpoints)-1]
}

func (js *JourneyStore) ListFilterValues() (M.FilterValues, error) {
	snapshot := js.Snapshot()
	if snapshot == nil {
		return M.FilterValues{}, ErrSnapshotNotReady
	}
	return snapshot.FilterValues, nil
}

// StartPeriodicRefresh rebuilds on every interval tick until ctx is done.
// Failed rebuilds are logged and the current snapshot keeps serving.
func (js *JourneyStore) StartPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	log.WithField("interval", interval.String()).Info("Starting periodic journey refresh.")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Stopped periodic journey refresh.")
				return
			case <-ticker.C:
				if _, err := js.Rebuild(ctx); err != nil {
					log.WithError(err).Error("Periodic journey refresh failed.")
				}
			}
		}
	}()
}
