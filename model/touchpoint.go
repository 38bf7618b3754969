package model

import (
	"time"
)

// ChannelUnknown is used when the source record has no utm_source.
const ChannelUnknown = "unknown"

// Touchpoint is a single acquisition event of a session.
type Touchpoint struct {
	Channel   string    `json:"channel"`
	Campaign  *string   `json:"campaign"`
	Medium    *string   `json:"medium"`
	Content   *string   `json:"content"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"created_at"`
}

// ProcessedJourney is the deduplicated, chronologically ordered path of a session.
// FirstTouchpoint and LastTouchpoint point into Touchpoints.
type ProcessedJourney struct {
	SessionID       string       `json:"sessionId"`
	Journey         []string     `json:"journey"`
	Touchpoints     []Touchpoint `json:"touchpoints"`
	TouchpointCount int          `json:"touchpointCount"`
	FirstTouchpoint *Touchpoint  `json:"firstTouchpoint"`
	LastTouchpoint  *Touchpoint  `json:"lastTouchpoint"`
}

// StringPtr returns nil for an empty value.
func StringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// StringValue returns "" for nil.
func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
