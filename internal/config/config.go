package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/stature/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/stature.defaults.json"

// Config holds the measurement and smoothing parameters. Every field is
// optional; the Get* methods fall back to built-in defaults so a partial
// file only overrides what it names.
type Config struct {
	// Calibration
	ReferenceShoulderWidthM *float64 `json:"reference_shoulder_width_m,omitempty"`
	HeightCorrection        *float64 `json:"height_correction,omitempty"`

	// Temporal smoothing
	BufferCapacity *int `json:"buffer_capacity,omitempty"`

	// Landmark visibility gates
	ShoulderVisibility *float64 `json:"shoulder_visibility,omitempty"`
	NoseVisibility     *float64 `json:"nose_visibility,omitempty"`
	HeelVisibility     *float64 `json:"heel_visibility,omitempty"`

	// Body type: shoulder-width / height ratio boundaries and assumed BMI
	ThinRatio    *float64 `json:"thin_ratio,omitempty"`
	AverageRatio *float64 `json:"average_ratio,omitempty"`
	ThinBMI      *float64 `json:"thin_bmi,omitempty"`
	AverageBMI   *float64 `json:"average_bmi,omitempty"`
	HeavyBMI     *float64 `json:"heavy_bmi,omitempty"`

	// Display classification
	TallThresholdM  *float64 `json:"tall_threshold_m,omitempty"`
	ShortThresholdM *float64 `json:"short_threshold_m,omitempty"`
	Units           *string  `json:"units,omitempty"`

	// Pose detector
	MinDetectionConfidence *float64 `json:"min_detection_confidence,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	c := EmptyConfig()
	return &Config{
		ReferenceShoulderWidthM: ptrFloat64(c.GetReferenceShoulderWidthM()),
		HeightCorrection:        ptrFloat64(c.GetHeightCorrection()),
		BufferCapacity:          ptrInt(c.GetBufferCapacity()),
		ShoulderVisibility:      ptrFloat64(c.GetShoulderVisibility()),
		NoseVisibility:          ptrFloat64(c.GetNoseVisibility()),
		HeelVisibility:          ptrFloat64(c.GetHeelVisibility()),
		ThinRatio:               ptrFloat64(c.GetThinRatio()),
		AverageRatio:            ptrFloat64(c.GetAverageRatio()),
		ThinBMI:                 ptrFloat64(c.GetThinBMI()),
		AverageBMI:              ptrFloat64(c.GetAverageBMI()),
		HeavyBMI:                ptrFloat64(c.GetHeavyBMI()),
		TallThresholdM:          ptrFloat64(c.GetTallThresholdM()),
		ShortThresholdM:         ptrFloat64(c.GetShortThresholdM()),
		Units:                   ptrString(c.GetUnits()),
		MinDetectionConfidence:  ptrFloat64(c.GetMinDetectionConfidence()),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func checkUnit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

func checkPositive(name string, v *float64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, *v)
	}
	return nil
}

// Validate checks that the configured values are usable. Cross-field
// checks use the effective values, so a single override is checked
// against the defaults of its partner.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"shoulder_visibility", c.ShoulderVisibility},
		{"nose_visibility", c.NoseVisibility},
		{"heel_visibility", c.HeelVisibility},
		{"min_detection_confidence", c.MinDetectionConfidence},
	} {
		if err := checkUnit(f.name, f.v); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"reference_shoulder_width_m", c.ReferenceShoulderWidthM},
		{"height_correction", c.HeightCorrection},
		{"thin_ratio", c.ThinRatio},
		{"average_ratio", c.AverageRatio},
		{"thin_bmi", c.ThinBMI},
		{"average_bmi", c.AverageBMI},
		{"heavy_bmi", c.HeavyBMI},
		{"tall_threshold_m", c.TallThresholdM},
		{"short_threshold_m", c.ShortThresholdM},
	} {
		if err := checkPositive(f.name, f.v); err != nil {
			return err
		}
	}

	if c.BufferCapacity != nil && *c.BufferCapacity < 1 {
		return fmt.Errorf("buffer_capacity must be at least 1, got %d", *c.BufferCapacity)
	}

	if c.GetThinRatio() >= c.GetAverageRatio() {
		return fmt.Errorf("thin_ratio (%f) must be below average_ratio (%f)", c.GetThinRatio(), c.GetAverageRatio())
	}

	if c.GetShortThresholdM() > c.GetTallThresholdM() {
		return fmt.Errorf("short_threshold_m (%f) must not exceed tall_threshold_m (%f)", c.GetShortThresholdM(), c.GetTallThresholdM())
	}

	if c.Units != nil && !units.IsValidSystem(*c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidSystemsString(), *c.Units)
	}

	return nil
}

// GetReferenceShoulderWidthM returns the assumed real shoulder width in metres.
func (c *Config) GetReferenceShoulderWidthM() float64 {
	if c.ReferenceShoulderWidthM == nil {
		return 0.4
	}
	return *c.ReferenceShoulderWidthM
}

// GetHeightCorrection returns the nose-to-crown correction multiplier.
func (c *Config) GetHeightCorrection() float64 {
	if c.HeightCorrection == nil {
		return 1.15
	}
	return *c.HeightCorrection
}

// GetBufferCapacity returns the rolling window length in frames.
func (c *Config) GetBufferCapacity() int {
	if c.BufferCapacity == nil {
		return 10
	}
	return *c.BufferCapacity
}

// GetShoulderVisibility returns the shoulder visibility gate.
func (c *Config) GetShoulderVisibility() float64 {
	if c.ShoulderVisibility == nil {
		return 0.5
	}
	return *c.ShoulderVisibility
}

// GetNoseVisibility returns the nose visibility gate.
func (c *Config) GetNoseVisibility() float64 {
	if c.NoseVisibility == nil {
		return 0.5
	}
	return *c.NoseVisibility
}

// GetHeelVisibility returns the heel visibility gate.
func (c *Config) GetHeelVisibility() float64 {
	if c.HeelVisibility == nil {
		return 0.3
	}
	return *c.HeelVisibility
}

// GetThinRatio returns the ratio below which a body is classed as thin.
func (c *Config) GetThinRatio() float64 {
	if c.ThinRatio == nil {
		return 0.22
	}
	return *c.ThinRatio
}

// GetAverageRatio returns the ratio below which a body is classed as average.
func (c *Config) GetAverageRatio() float64 {
	if c.AverageRatio == nil {
		return 0.26
	}
	return *c.AverageRatio
}

// GetThinBMI returns the BMI assumed for a thin body.
func (c *Config) GetThinBMI() float64 {
	if c.ThinBMI == nil {
		return 19
	}
	return *c.ThinBMI
}

// GetAverageBMI returns the BMI assumed for an average body.
func (c *Config) GetAverageBMI() float64 {
	if c.AverageBMI == nil {
		return 22
	}
	return *c.AverageBMI
}

// GetHeavyBMI returns the BMI assumed for a heavy body.
func (c *Config) GetHeavyBMI() float64 {
	if c.HeavyBMI == nil {
		return 27
	}
	return *c.HeavyBMI
}

// GetTallThresholdM returns the height above which a person is shown as tall.
func (c *Config) GetTallThresholdM() float64 {
	if c.TallThresholdM == nil {
		return 1.80
	}
	return *c.TallThresholdM
}

// GetShortThresholdM returns the height below which a person is shown as short.
func (c *Config) GetShortThresholdM() float64 {
	if c.ShortThresholdM == nil {
		return 1.60
	}
	return *c.ShortThresholdM
}

// GetUnits returns the display unit system.
func (c *Config) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return units.Metric
	}
	return *c.Units
}

// GetMinDetectionConfidence returns the pose presence score below which a
// frame is treated as having no person.
func (c *Config) GetMinDetectionConfidence() float64 {
	if c.MinDetectionConfidence == nil {
		return 0.5
	}
	return *c.MinDetectionConfidence
}
