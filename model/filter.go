package model

import (
	"fmt"
	"sort"
	"strings"
)

// FilterCriteria holds the optional equality filters of a journey query.
// A nil or empty field is absent.
type FilterCriteria struct {
	Campaign *string `json:"campaign,omitempty"`
	Medium   *string `json:"medium,omitempty"`
	Content  *string `json:"content,omitempty"`
}

func NewFilterCriteria(campaign, medium, content string) FilterCriteria {
	return FilterCriteria{
		Campaign: StringPtr(campaign),
		Medium:   StringPtr(medium),
		Content:  StringPtr(content),
	}
}

func isPresent(value *string) bool {
	return value != nil && *value != ""
}

func (fc FilterCriteria) IsEmpty() bool {
	return !isPresent(fc.Campaign) && !isPresent(fc.Medium) && !isPresent(fc.Content)
}

func fieldMatches(filter *string, value *string) bool {
	if !isPresent(filter) {
		return true
	}
	return value != nil && *value == *filter
}

// Matches reports whether a touchpoint satisfies every present field.
func (fc FilterCriteria) Matches(touchpoint *Touchpoint) bool {
	return fieldMatches(fc.Campaign, touchpoint.Campaign) &&
		fieldMatches(fc.Medium, touchpoint.Medium) &&
		fieldMatches(fc.Content, touchpoint.Content)
}

// FilterJourneys keeps journeys with at least one touchpoint matching all
// present criteria. Empty criteria return the input unchanged.
func FilterJourneys(journeys []*ProcessedJourney, criteria FilterCriteria) []*ProcessedJourney {
	if criteria.IsEmpty() {
		return journeys
	}

	filtered := make([]*ProcessedJourney, 0)
	for _, journey := range journeys {
		for i := range journey.Touchpoints {
			if criteria.Matches(&journey.Touchpoints[i]) {
				filtered = append(filtered, journey)
				break
			}
		}
	}
	return filtered
}

// SearchJourneys keeps journeys whose session id or any channel contains the
// term, ignoring case. An empty term returns the input unchanged.
func SearchJourneys(journeys []*ProcessedJourney, term string) []*ProcessedJourney {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return journeys
	}

	matched := make([]*ProcessedJourney, 0)
	for _, journey := range journeys {
		if strings.Contains(strings.ToLower(journey.SessionID), term) {
			matched = append(matched, journey)
			continue
		}
		for _, channel := range journey.Journey {
			if strings.Contains(strings.ToLower(channel), term) {
				matched = append(matched, journey)
				break
			}
		}
	}
	return matched
}

type JourneyStats struct {
	TotalJourneys      int     `json:"totalJourneys"`
	AverageTouchpoints float64 `json:"averageTouchpoints"`
	UniqueChannels     int     `json:"uniqueChannels"`
}

// GetJourneyStats aggregates a journey set. An empty set gives zero values.
func GetJourneyStats(journeys []*ProcessedJourney) JourneyStats {
	if len(journeys) == 0 {
		return JourneyStats{}
	}

	totalTouchpoints := 0
	channels := make(map[string]bool)
	for _, journey := range journeys {
		totalTouchpoints += journey.TouchpointCount
		for _, channel := range journey.Journey {
			channels[channel] = true
		}
	}

	return JourneyStats{
		TotalJourneys:      len(journeys),
		AverageTouchpoints: float64(totalTouchpoints) / float64(len(journeys)),
		UniqueChannels:     len(channels),
	}
}

type FilterValues struct {
	Campaigns []string `json:"campaigns"`
	Mediums   []string `json:"mediums"`
	Contents  []string `json:"contents"`
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetFilterValues returns the sorted distinct campaign, medium and content
// values over every touchpoint of the given journeys.
func GetFilterValues(journeys []*ProcessedJourney) FilterValues {
	campaigns := make(map[string]bool)
	mediums := make(map[string]bool)
	contents := make(map[string]bool)

	for _, journey := range journeys {
		for _, touchpoint := range journey.Touchpoints {
			if isPresent(touchpoint.Campaign) {
				campaigns[*touchpoint.Campaign] = true
			}
			if isPresent(touchpoint.Medium) {
				mediums[*touchpoint.Medium] = true
			}
			if isPresent(touchpoint.Content) {
				contents[*touchpoint.Content] = true
			}
		}
	}

	return FilterValues{
		Campaigns: sortedKeys(campaigns),
		Mediums:   sortedKeys(mediums),
		Contents:  sortedKeys(contents),
	}
}

// JourneyQuery is the input of a journey listing.
type JourneyQuery struct {
	Filter FilterCriteria `json:"filter"`
	Search string         `json:"search,omitempty"`
}

// CacheKey identifies the query within a snapshot.
func (q JourneyQuery) CacheKey() string {
	return fmt.Sprintf("c=%q:m=%q:ct=%q:s=%q",
		StringValue(q.Filter.Campaign), StringValue(q.Filter.Medium),
		StringValue(q.Filter.Content), strings.ToLower(strings.TrimSpace(q.Search)))
}

type JourneysResult struct {
	Stats    JourneyStats        `json:"stats"`
	Journeys []*ProcessedJourney `json:"journeys"`
}

// ListJourneys filters, searches and aggregates the journey set.
func ListJourneys(journeys []*ProcessedJourney, query JourneyQuery) *JourneysResult {
	selected := SearchJourneys(FilterJourneys(journeys, query.Filter), query.Search)
	if selected == nil {
		selected = make([]*ProcessedJourney, 0)
	}
	return &JourneysResult{
		Stats:    GetJourneyStats(selected),
		Journeys: selected,
	}
}
