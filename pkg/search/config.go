package search

import (
	"bufio"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownTunable = errors.New("unknown tunable")
	ErrInvalidConfig  = errors.New("invalid search configuration")
)

// Config holds the tunables of the annealer. Names are the ones accepted by ParseConfig.
type Config struct {
	InitialTemperature         float64 `mapstructure:"initial_temperature" yaml:"initial_temperature" validate:"gt=0"`
	CoolingRate                float64 `mapstructure:"cooling_rate" yaml:"cooling_rate" validate:"gt=0,lt=1"`
	FeasibleTemperatureCeiling float64 `mapstructure:"feasible_temperature_ceiling" yaml:"feasible_temperature_ceiling" validate:"gt=0"`
	MinTemperature             float64 `mapstructure:"min_temperature" yaml:"min_temperature" validate:"gt=0"`

	// Iterations without a new best before a penalization round
	StallTimeout            int     `mapstructure:"stall_timeout" yaml:"stall_timeout" validate:"gt=0"`
	PenalizationRate        float64 `mapstructure:"penalization_rate" yaml:"penalization_rate" validate:"gte=0"`
	PenalizationTemperature float64 `mapstructure:"penalization_temperature" yaml:"penalization_temperature" validate:"gt=0"`

	HardWeight       float64 `mapstructure:"hard_weight" yaml:"hard_weight" validate:"gt=0"`
	SoftQuantization float64 `mapstructure:"soft_quantization" yaml:"soft_quantization" validate:"gt=0"`

	MaxMultiVariables       int     `mapstructure:"max_multi_variables" yaml:"max_multi_variables" validate:"gte=2"`
	WeightTime              float64 `mapstructure:"weight_time" yaml:"weight_time" validate:"gte=0"`
	WeightRoom              float64 `mapstructure:"weight_room" yaml:"weight_room" validate:"gte=0"`
	WeightMultiTime         float64 `mapstructure:"weight_multi_time" yaml:"weight_multi_time" validate:"gte=0"`
	WeightMultiRoom         float64 `mapstructure:"weight_multi_room" yaml:"weight_multi_room" validate:"gte=0"`
	WeightEnrollment        float64 `mapstructure:"weight_enrollment" yaml:"weight_enrollment" validate:"gte=0"`
	FeasibleEnrollmentBoost float64 `mapstructure:"feasible_enrollment_boost" yaml:"feasible_enrollment_boost" validate:"gte=0"`
	PenalizedMultiBoost     float64 `mapstructure:"penalized_multi_boost" yaml:"penalized_multi_boost" validate:"gte=0"`

	// Iterations between two OnSnapshot notifications
	SnapshotInterval int    `mapstructure:"snapshot_interval" yaml:"snapshot_interval" validate:"gt=0"`
	Seed             uint64 `mapstructure:"seed" yaml:"seed"`
	// Entries of every constraint cache, 0 disables caching
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		InitialTemperature:         0.1,
		CoolingRate:                0.99999,
		FeasibleTemperatureCeiling: 0.002,
		MinTemperature:             1e-7,
		StallTimeout:               20000,
		PenalizationRate:           0.0005,
		PenalizationTemperature:    0.01,
		HardWeight:                 10,
		SoftQuantization:           1000,
		MaxMultiVariables:          3,
		WeightTime:                 4,
		WeightRoom:                 2,
		WeightMultiTime:            1,
		WeightMultiRoom:            1,
		WeightEnrollment:           2,
		FeasibleEnrollmentBoost:    2,
		PenalizedMultiBoost:        2,
		SnapshotInterval:           100000,
		Seed:                       1,
		CacheSize:                  4096,
	}
}

var validate = validator.New()

func (config Config) Validate() error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if config.MinTemperature > config.InitialTemperature {
		return fmt.Errorf("%w: min_temperature %v is above initial_temperature %v", ErrInvalidConfig, config.MinTemperature, config.InitialTemperature)
	}
	return nil
}

// ParseConfig reads "name = value" lines on top of DefaultConfig. Blank lines and lines starting
// with '#' are ignored.
func ParseConfig(text string) (Config, error) {
	values := make(map[string]any)
	scanner := bufio.NewScanner(strings.NewReader(text))
	for number := 1; scanner.Scan(); number++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, found := strings.Cut(line, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !found || name == "" || value == "" {
			return Config{}, fmt.Errorf("%w: line %v is not of the form name = value", ErrInvalidConfig, number)
		}
		values[name] = value
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return decodeConfig(values)
}

// ParseConfigYAML reads a flat YAML mapping of tunables on top of DefaultConfig
func ParseConfigYAML(data []byte) (Config, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return decodeConfig(values)
}

func decodeConfig(values map[string]any) (Config, error) {
	config := DefaultConfig()
	var metadata mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		Metadata:         &metadata,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(values); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	//** Reject names outside the recognized set
	if len(metadata.Unused) > 0 {
		slices.Sort(metadata.Unused)
		return Config{}, fmt.Errorf("%w: %v", ErrUnknownTunable, strings.Join(metadata.Unused, ", "))
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
