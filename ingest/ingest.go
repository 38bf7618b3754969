package ingest

import (
	"context"
	"strings"
	"time"

	C "journeys/config"
	M "journeys/model"
	U "journeys/util"

	log "github.com/sirupsen/logrus"
)

// RawTouchpoint is a source record before normalization. Typed sources set
// CreatedAtTime, tabular ones CreatedAt.
type RawTouchpoint struct {
	Row           int
	Source        string
	Campaign      string
	Medium        string
	Content       string
	SessionID     string
	CreatedAt     string
	CreatedAtTime *time.Time
}

// RecordReader reads raw touchpoint records in arrival order.
type RecordReader interface {
	Name() string
	ReadRecords(ctx context.Context) ([]RawTouchpoint, error)
}

type LoadResult struct {
	Touchpoints    []M.Touchpoint
	SkippedRecords int
}

// Source provides normalized touchpoints to the journey store.
type Source interface {
	Name() string
	Load(ctx context.Context) (*LoadResult, error)
}

// Loader normalizes the records of a RecordReader.
type Loader struct {
	reader   RecordReader
	policy   string
	location *time.Location
}

var _ Source = (*Loader)(nil)

func NewLoader(reader RecordReader, recordPolicy string, location *time.Location) *Loader {
	if location == nil {
		location = time.UTC
	}
	return &Loader{reader: reader, policy: recordPolicy, location: location}
}

func (l *Loader) Name() string {
	return l.reader.Name()
}

// Load fails with an IngestionFailure when the source cannot be read, or when
// a record is malformed under the reject policy.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	logCtx := log.WithField("source", l.Name()).WithField("record_policy", l.policy)

	raws, err := l.reader.ReadRecords(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read touchpoint source.")
		return nil, M.NewIngestionFailure(l.Name(), err)
	}

	touchpoints, skipped, err := Normalize(raws, l.policy, l.location)
	if err != nil {
		logCtx.WithError(err).Error("Rejected touchpoint batch with invalid records.")
		return nil, M.NewIngestionFailure(l.Name(), err)
	}

	logCtx.WithFields(log.Fields{"records": len(raws), "touchpoints": len(touchpoints),
		"skipped_records": skipped}).Info("Loaded touchpoints.")
	return &LoadResult{Touchpoints: touchpoints, SkippedRecords: skipped}, nil
}

// NormalizeRecord maps a raw record to a touchpoint. A missing channel
// becomes "unknown" and empty optional fields become absent.
func NormalizeRecord(raw RawTouchpoint, location *time.Location) (M.Touchpoint, M.RecordValidationErrors) {
	var errs M.RecordValidationErrors

	sessionID := strings.TrimSpace(raw.SessionID)
	if sessionID == "" {
		errs = append(errs, &M.RecordValidationError{Row: raw.Row, Field: "sessionId", Message: "required"})
	}

	var createdAt time.Time
	if raw.CreatedAtTime != nil && !raw.CreatedAtTime.IsZero() {
		createdAt = *raw.CreatedAtTime
	} else {
		var err error
		createdAt, err = U.ParseTimestampIn(raw.CreatedAt, location)
		if err != nil {
			errs = append(errs, &M.RecordValidationError{Row: raw.Row, Field: "createdAt",
				Message: "invalid timestamp " + strings.TrimSpace(raw.CreatedAt)})
		}
	}

	if len(errs) > 0 {
		return M.Touchpoint{}, errs
	}

	channel := strings.TrimSpace(raw.Source)
	if channel == "" {
		channel = M.ChannelUnknown
	}

	return M.Touchpoint{
		Channel:   channel,
		Campaign:  M.StringPtr(strings.TrimSpace(raw.Campaign)),
		Medium:    M.StringPtr(strings.TrimSpace(raw.Medium)),
		Content:   M.StringPtr(strings.TrimSpace(raw.Content)),
		SessionID: sessionID,
		CreatedAt: createdAt,
	}, nil
}

// Normalize converts records in order. Under RecordPolicyReject any invalid
// record fails the whole batch with every validation error collected. Under
// RecordPolicySkip invalid records are logged, dropped and counted.
func Normalize(raws []RawTouchpoint, recordPolicy string, location *time.Location) ([]M.Touchpoint, int, error) {
	touchpoints := make([]M.Touchpoint, 0, len(raws))
	var rejected M.RecordValidationErrors
	skipped := 0

	for _, raw := range raws {
		touchpoint, errs := NormalizeRecord(raw, location)
		if len(errs) == 0 {
			touchpoints = append(touchpoints, touchpoint)
			continue
		}

		if recordPolicy == C.RecordPolicySkip {
			skipped++
			log.WithField("row", raw.Row).WithError(errs).Warn("Skipped invalid touchpoint record.")
			continue
		}
		rejected = append(rejected, errs...)
	}

	if len(rejected) > 0 {
		return nil, 0, rejected
	}
	return touchpoints, skipped, nil
}
