package model

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func touchpointAt(sessionID, channel string, minutes int) Touchpoint {
	return Touchpoint{
		Channel:   channel,
		SessionID: sessionID,
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func channelsOf(touchpoints []Touchpoint) []string {
	channels := make([]string, len(touchpoints))
	for i := range touchpoints {
		channels[i] = touchpoints[i].Channel
	}
	return channels
}

func randomTouchpoints(n, numSessions, numChannels int) []Touchpoint {
	touchpoints := make([]Touchpoint, n)
	for i := range touchpoints {
		touchpoints[i] = Touchpoint{
			// Content tags the input position.
			Content:   StringPtr(fmt.Sprintf("%d", i)),
			Channel:   fmt.Sprintf("ch%d", rand.Intn(numChannels)),
			SessionID: fmt.Sprintf("s%d", rand.Intn(numSessions)),
			// Few distinct timestamps to force ties.
			CreatedAt: baseTime.Add(time.Duration(rand.Intn(5)) * time.Minute),
		}
	}
	return touchpoints
}

func TestGroupBySession(t *testing.T) {
	touchpoints := []Touchpoint{
		touchpointAt("b", "google", 3),
		touchpointAt("a", "email", 1),
		touchpointAt("b", "direct", 0),
		touchpointAt("c", "organic", 5),
		touchpointAt("a", "google", 2),
	}

	sessions := GroupBySession(touchpoints)
	assert.Equal(t, []string{"b", "a", "c"}, sessions.SessionIDs())
	assert.Equal(t, 3, sessions.Len())
	assert.Equal(t, []string{"google", "direct"}, channelsOf(sessions.Get("b")))
	assert.Equal(t, []string{"email", "google"}, channelsOf(sessions.Get("a")))
	assert.Nil(t, sessions.Get("missing"))

	empty := GroupBySession(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.SessionIDs())
}

func TestGroupBySessionConservesCount(t *testing.T) {
	for _, n := range []int{0, 1, 10, 200} {
		touchpoints := randomTouchpoints(n, 7, 4)
		sessions := GroupBySession(touchpoints)

		total := 0
		seen := make(map[string]bool)
		for _, sessionID := range sessions.SessionIDs() {
			for _, touchpoint := range sessions.Get(sessionID) {
				assert.Equal(t, sessionID, touchpoint.SessionID)
				assert.False(t, seen[*touchpoint.Content], "touchpoint grouped twice")
				seen[*touchpoint.Content] = true
				total++
			}
		}
		assert.Equal(t, n, total)
		assert.Len(t, seen, n)
	}
}

func TestSortByCreatedAtIsStable(t *testing.T) {
	for run := 0; run < 20; run++ {
		input := randomTouchpoints(30, 1, 3)
		position := make(map[string]int)
		for i := range input {
			position[*input[i].Content] = i
		}

		sorted := SortByCreatedAt(input)
		require.Len(t, sorted, len(input))
		for i := 1; i < len(sorted); i++ {
			prev, curr := sorted[i-1], sorted[i]
			assert.False(t, curr.CreatedAt.Before(prev.CreatedAt), "not non-decreasing")
			if curr.CreatedAt.Equal(prev.CreatedAt) {
				assert.Less(t, position[*prev.Content], position[*curr.Content], "tie order changed")
			}
		}
	}
}

func TestSortByCreatedAtDoesNotMutateInput(t *testing.T) {
	input := []Touchpoint{touchpointAt("s", "b", 2), touchpointAt("s", "a", 1)}
	sorted := SortByCreatedAt(input)
	assert.Equal(t, []string{"a", "b"}, channelsOf(sorted))
	assert.Equal(t, []string{"b", "a"}, channelsOf(input))
}

func TestDeduplicateChannels(t *testing.T) {
	tests := []struct {
		name     string
		channels []string
		expected []string
	}{
		{"single", []string{"direct"}, []string{"direct"}},
		{"two identical", []string{"direct", "direct"}, []string{"direct", "direct"}},
		{"two distinct", []string{"direct", "email"}, []string{"direct", "email"}},
		{"three interior equals first", []string{"organic", "organic", "email"}, []string{"organic", "email"}},
		{"three interior distinct", []string{"organic", "email", "organic"}, []string{"organic", "email", "organic"}},
		{"three all equal", []string{"a", "a", "a"}, []string{"a", "a"}},
		{"interior repeats", []string{"a", "b", "c", "b", "c", "d"}, []string{"a", "b", "c", "d"}},
		{"interior equals last is kept", []string{"a", "b", "b", "b"}, []string{"a", "b", "b"}},
		{"first repeated inside", []string{"a", "b", "a", "c", "a"}, []string{"a", "b", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := make([]Touchpoint, len(tt.channels))
			for i, channel := range tt.channels {
				input[i] = touchpointAt("s", channel, i)
			}
			result := DeduplicateChannels(input)
			assert.Equal(t, tt.expected, channelsOf(result))
			assert.Equal(t, input[0], result[0])
			assert.Equal(t, input[len(input)-1], result[len(result)-1])
		})
	}

	assert.Empty(t, DeduplicateChannels(nil))
}

func TestDeduplicateChannelsInvariants(t *testing.T) {
	for run := 0; run < 50; run++ {
		sorted := SortByCreatedAt(randomTouchpoints(3+rand.Intn(20), 1, 5))
		result := DeduplicateChannels(sorted)

		require.GreaterOrEqual(t, len(result), 2)
		assert.LessOrEqual(t, len(result), len(sorted))
		assert.Equal(t, sorted[0], result[0])
		assert.Equal(t, sorted[len(sorted)-1], result[len(result)-1])

		seen := map[string]bool{sorted[0].Channel: true}
		for _, touchpoint := range result[1 : len(result)-1] {
			assert.False(t, seen[touchpoint.Channel], "interior channel %s repeated", touchpoint.Channel)
			seen[touchpoint.Channel] = true
		}
	}
}

func TestBuildJourney(t *testing.T) {
	touchpoints := []Touchpoint{touchpointAt("s1", "organic", 0), touchpointAt("s1", "email", 5)}
	journey, err := BuildJourney("s1", touchpoints)
	require.Nil(t, err)
	assert.Equal(t, "s1", journey.SessionID)
	assert.Equal(t, []string{"organic", "email"}, journey.Journey)
	assert.Equal(t, 2, journey.TouchpointCount)
	assert.Same(t, &journey.Touchpoints[0], journey.FirstTouchpoint)
	assert.Same(t, &journey.Touchpoints[1], journey.LastTouchpoint)

	single, err := BuildJourney("s2", []Touchpoint{touchpointAt("s2", "direct", 0)})
	require.Nil(t, err)
	assert.Same(t, single.FirstTouchpoint, single.LastTouchpoint)

	_, err = BuildJourney("s3", nil)
	assert.True(t, IsInternalInvariantViolation(err))
}

func TestProcessSessionScenario(t *testing.T) {
	// Arrival order is not chronological.
	touchpoints := []Touchpoint{
		touchpointAt("s1", "organic", 0),
		touchpointAt("s1", "email", 5),
		touchpointAt("s1", "organic", 2),
		touchpointAt("s1", "organic", 10),
	}

	journey, err := ProcessSession("s1", touchpoints)
	require.Nil(t, err)
	assert.Equal(t, []string{"organic", "email", "organic"}, journey.Journey)
	assert.Equal(t, 3, journey.TouchpointCount)
	assert.Equal(t, baseTime, journey.Touchpoints[0].CreatedAt)
	assert.Equal(t, baseTime.Add(5*time.Minute), journey.Touchpoints[1].CreatedAt)
	assert.Equal(t, baseTime.Add(10*time.Minute), journey.LastTouchpoint.CreatedAt)
}

func TestProcessSessionTwoIdenticalChannels(t *testing.T) {
	journey, err := ProcessSession("s2", []Touchpoint{
		touchpointAt("s2", "direct", 1),
		touchpointAt("s2", "direct", 0),
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"direct", "direct"}, journey.Journey)
	assert.Equal(t, 2, journey.TouchpointCount)
}

func TestProcessJourneys(t *testing.T) {
	touchpoints := []Touchpoint{
		touchpointAt("s2", "google", 1),
		touchpointAt("s1", "organic", 0),
		touchpointAt("s2", "google", 0),
		touchpointAt("s3", "email", 0),
		touchpointAt("s1", "email", 3),
	}

	for _, numRoutines := range []int{0, 1, 2, 10} {
		journeys, err := ProcessJourneys(touchpoints, numRoutines)
		require.Nil(t, err)
		require.Len(t, journeys, 3)
		assert.Equal(t, "s2", journeys[0].SessionID)
		assert.Equal(t, "s1", journeys[1].SessionID)
		assert.Equal(t, "s3", journeys[2].SessionID)
		assert.Equal(t, []string{"organic", "email"}, journeys[1].Journey)
	}

	journeys, err := ProcessJourneys(nil, 4)
	assert.Nil(t, err)
	assert.Empty(t, journeys)
}

func TestProcessJourneysAssemblerConsistency(t *testing.T) {
	journeys, err := ProcessJourneys(randomTouchpoints(500, 40, 6), 8)
	require.Nil(t, err)

	for _, journey := range journeys {
		assert.Equal(t, len(journey.Touchpoints), journey.TouchpointCount)
		require.Len(t, journey.Journey, len(journey.Touchpoints))
		for i := range journey.Touchpoints {
			assert.Equal(t, journey.Touchpoints[i].Channel, journey.Journey[i])
			assert.Equal(t, journey.SessionID, journey.Touchpoints[i].SessionID)
		}
		assert.Equal(t, journey.Touchpoints[0], *journey.FirstTouchpoint)
		assert.Equal(t, journey.Touchpoints[journey.TouchpointCount-1], *journey.LastTouchpoint)
	}
}
