package simulator

import (
	"fmt"
	"io/ioutil"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// ProbabilityMap maps a value to its probability. Probabilities must sum to 1.
// The empty value stands for an absent attribute.
type ProbabilityMap map[string]float64

type Configuration struct {
	Seed                     int64          `yaml:"seed"`
	Sessions                 int            `yaml:"sessions"`
	MaxTouchpointsPerSession int            `yaml:"max_touchpoints_per_session"`
	StartTime                time.Time      `yaml:"start_time"`
	SessionSpreadInSecs      int64          `yaml:"session_spread_in_secs"`
	TouchpointGapInSecs      int64          `yaml:"touchpoint_gap_in_secs"`
	Channels                 ProbabilityMap `yaml:"channels"`
	Campaigns                ProbabilityMap `yaml:"campaigns"`
	Mediums                  ProbabilityMap `yaml:"mediums"`
	Contents                 ProbabilityMap `yaml:"contents"`
	// Probability of a touchpoint arriving out of chronological order.
	ShuffleProbability float64 `yaml:"shuffle_probability"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Seed:                     1,
		Sessions:                 100,
		MaxTouchpointsPerSession: 6,
		StartTime:                time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		SessionSpreadInSecs:      7 * 24 * 3600,
		TouchpointGapInSecs:      3600,
		Channels: ProbabilityMap{"google": 0.35, "facebook": 0.2, "email": 0.15,
			"organic": 0.15, "direct": 0.1, "": 0.05},
		Campaigns: ProbabilityMap{"spring_sale": 0.3, "brand": 0.2, "retargeting": 0.1, "": 0.4},
		Mediums:   ProbabilityMap{"cpc": 0.4, "newsletter": 0.15, "social": 0.15, "": 0.3},
		Contents:  ProbabilityMap{"banner_a": 0.2, "banner_b": 0.2, "video": 0.1, "": 0.5},

		ShuffleProbability: 0.1,
	}
}

func LoadConfigFromFile(path string) (*Configuration, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read simulator config")
	}

	config := Configuration{}
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal simulator config")
	}
	config.fillDefaults()
	return &config, config.Validate()
}

// fillDefaults replaces zero fields with defaults. Probability maps are
// replaced as a whole, never merged.
func (config *Configuration) fillDefaults() {
	defaults := DefaultConfiguration()
	if config.Seed == 0 {
		config.Seed = defaults.Seed
	}
	if config.Sessions == 0 {
		config.Sessions = defaults.Sessions
	}
	if config.MaxTouchpointsPerSession == 0 {
		config.MaxTouchpointsPerSession = defaults.MaxTouchpointsPerSession
	}
	if config.StartTime.IsZero() {
		config.StartTime = defaults.StartTime
	}
	if config.SessionSpreadInSecs == 0 {
		config.SessionSpreadInSecs = defaults.SessionSpreadInSecs
	}
	if config.TouchpointGapInSecs == 0 {
		config.TouchpointGapInSecs = defaults.TouchpointGapInSecs
	}
	if len(config.Channels) == 0 {
		config.Channels = defaults.Channels
	}
	if len(config.Campaigns) == 0 {
		config.Campaigns = defaults.Campaigns
	}
	if len(config.Mediums) == 0 {
		config.Mediums = defaults.Mediums
	}
	if len(config.Contents) == 0 {
		config.Contents = defaults.Contents
	}
}

func (config *Configuration) Validate() error {
	if config.Sessions < 1 {
		return fmt.Errorf("invalid sessions %d", config.Sessions)
	}
	if config.MaxTouchpointsPerSession < 1 {
		return fmt.Errorf("invalid max_touchpoints_per_session %d", config.MaxTouchpointsPerSession)
	}
	if config.ShuffleProbability < 0 || config.ShuffleProbability > 1 {
		return fmt.Errorf("invalid shuffle_probability %v", config.ShuffleProbability)
	}

	for tag, probMap := range map[string]ProbabilityMap{"channels": config.Channels,
		"campaigns": config.Campaigns, "mediums": config.Mediums, "contents": config.Contents} {
		if err := probMap.Validate(); err != nil {
			return errors.Wrap(err, tag)
		}
	}
	return nil
}

func (probMap ProbabilityMap) Validate() error {
	if len(probMap) == 0 {
		return errors.New("empty probability map")
	}

	sum := 0.0
	for value, probability := range probMap {
		if probability < 0 {
			return fmt.Errorf("negative probability for %q", value)
		}
		sum += probability
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("probabilities sum to %v", sum)
	}
	return nil
}

// rangeMap selects values by cumulative probability. Keys are sorted so a
// seed always yields the same data.
type rangeMap struct {
	values     []string
	cumulative []float64
}

func computeRangeMap(probMap ProbabilityMap) rangeMap {
	values := make([]string, 0, len(probMap))
	for value := range probMap {
		values = append(values, value)
	}
	sort.Strings(values)

	rm := rangeMap{values: values, cumulative: make([]float64, len(values))}
	sum := 0.0
	for i, value := range values {
		sum += probMap[value]
		rm.cumulative[i] = sum
	}
	return rm
}

// pick maps a uniform sample in [0, 1) to a value.
func (rm rangeMap) pick(sample float64) string {
	index := sort.SearchFloat64s(rm.cumulative, sample)
	for index < len(rm.cumulative) && rm.cumulative[index] == sample {
		index++
	}
	if index >= len(rm.values) {
		index = len(rm.values) - 1
	}
	return rm.values[index]
}
