package model

import (
	"sort"
	"sync"

	U "journeys/util"

	log "github.com/sirupsen/logrus"
)

// SessionGroups holds touchpoints grouped by session id. Sessions keep the
// order in which they were first seen and each group keeps input order.
type SessionGroups struct {
	order  []string
	groups map[string][]Touchpoint
}

// GroupBySession partitions touchpoints by session id.
func GroupBySession(touchpoints []Touchpoint) *SessionGroups {
	sessions := &SessionGroups{
		order:  make([]string, 0),
		groups: make(map[string][]Touchpoint),
	}

	for _, touchpoint := range touchpoints {
		if _, exists := sessions.groups[touchpoint.SessionID]; !exists {
			sessions.order = append(sessions.order, touchpoint.SessionID)
		}
		sessions.groups[touchpoint.SessionID] = append(sessions.groups[touchpoint.SessionID], touchpoint)
	}

	return sessions
}

// SessionIDs returns session ids in first-seen order.
func (sg *SessionGroups) SessionIDs() []string {
	return sg.order
}

func (sg *SessionGroups) Get(sessionID string) []Touchpoint {
	return sg.groups[sessionID]
}

func (sg *SessionGroups) Len() int {
	return len(sg.order)
}

// SortByCreatedAt returns a copy ordered by created_at. Equal timestamps keep
// their input order.
func SortByCreatedAt(touchpoints []Touchpoint) []Touchpoint {
	sorted := make([]Touchpoint, len(touchpoints))
	copy(sorted, touchpoints)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// DeduplicateChannels keeps the first and the last touchpoint unconditionally
// and only the first occurrence of each channel in between. The channel of
// the first touchpoint counts as seen, so an interior repeat of it is dropped.
// Sessions with two or fewer touchpoints are returned unchanged.
func DeduplicateChannels(touchpoints []Touchpoint) []Touchpoint {
	if len(touchpoints) <= 2 {
		return touchpoints
	}

	last := len(touchpoints) - 1
	result := make([]Touchpoint, 0, len(touchpoints))
	seenChannels := make(map[string]bool)

	result = append(result, touchpoints[0])
	seenChannels[touchpoints[0].Channel] = true

	for i := 1; i < last; i++ {
		if seenChannels[touchpoints[i].Channel] {
			continue
		}
		result = append(result, touchpoints[i])
		seenChannels[touchpoints[i].Channel] = true
	}

	return append(result, touchpoints[last])
}

// BuildJourney assembles the journey of a deduplicated session.
func BuildJourney(sessionID string, touchpoints []Touchpoint) (*ProcessedJourney, error) {
	if len(touchpoints) == 0 {
		return nil, NewInternalInvariantViolation("no touchpoints to assemble for session %q", sessionID)
	}

	channels := make([]string, len(touchpoints))
	for i := range touchpoints {
		channels[i] = touchpoints[i].Channel
	}

	return &ProcessedJourney{
		SessionID:       sessionID,
		Journey:         channels,
		Touchpoints:     touchpoints,
		TouchpointCount: len(touchpoints),
		FirstTouchpoint: &touchpoints[0],
		LastTouchpoint:  &touchpoints[len(touchpoints)-1],
	}, nil
}

// ProcessSession sorts, deduplicates and assembles one session.
func ProcessSession(sessionID string, touchpoints []Touchpoint) (*ProcessedJourney, error) {
	sorted := SortByCreatedAt(touchpoints)
	return BuildJourney(sessionID, DeduplicateChannels(sorted))
}

// ProcessJourneys builds a journey per session. Sessions are processed
// concurrently in batches of numRoutines; the result keeps first-seen
// session order.
func ProcessJourneys(touchpoints []Touchpoint, numRoutines int) ([]*ProcessedJourney, error) {
	if numRoutines < 1 {
		numRoutines = 1
	}

	logCtx := log.WithField("touchpoints", len(touchpoints))
	logCtx.Info("Processing touchpoints.")

	sessions := GroupBySession(touchpoints)
	logCtx.WithField("sessions", sessions.Len()).Info("Grouped touchpoints by session.")

	sessionIDs := sessions.SessionIDs()
	journeys := make([]*ProcessedJourney, len(sessionIDs))
	errs := make([]error, len(sessionIDs))

	offset := 0
	for _, batch := range U.GetStringListAsBatch(sessionIDs, numRoutines) {
		var wg sync.WaitGroup
		wg.Add(len(batch))
		for i, sessionID := range batch {
			go func(index int, sessionID string) {
				defer wg.Done()
				journeys[index], errs[index] = ProcessSession(sessionID, sessions.Get(sessionID))
			}(offset+i, sessionID)
		}
		wg.Wait()
		offset += len(batch)
	}

	for i := range errs {
		if errs[i] != nil {
			logCtx.WithError(errs[i]).WithField("session_id", sessionIDs[i]).
				Error("Failed to process session.")
			return nil, errs[i]
		}
	}

	logCtx.WithField("journeys", len(journeys)).Info("Processed journeys.")
	return journeys, nil
}
