package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ReferenceShoulderWidthM == nil || *cfg.ReferenceShoulderWidthM != 0.4 {
		t.Errorf("Expected ReferenceShoulderWidthM 0.4, got %v", cfg.ReferenceShoulderWidthM)
	}
	if cfg.BufferCapacity == nil || *cfg.BufferCapacity != 10 {
		t.Errorf("Expected BufferCapacity 10, got %v", cfg.BufferCapacity)
	}
	if cfg.HeelVisibility == nil || *cfg.HeelVisibility != 0.3 {
		t.Errorf("Expected HeelVisibility 0.3, got %v", cfg.HeelVisibility)
	}
	if cfg.Units == nil || *cfg.Units != "metric" {
		t.Errorf("Expected Units metric, got %v", cfg.Units)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() should validate, got %v", err)
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyConfig()

	floats := []struct {
		name string
		got  float64
		want float64
	}{
		{"reference_shoulder_width_m", cfg.GetReferenceShoulderWidthM(), 0.4},
		{"height_correction", cfg.GetHeightCorrection(), 1.15},
		{"shoulder_visibility", cfg.GetShoulderVisibility(), 0.5},
		{"nose_visibility", cfg.GetNoseVisibility(), 0.5},
		{"heel_visibility", cfg.GetHeelVisibility(), 0.3},
		{"thin_ratio", cfg.GetThinRatio(), 0.22},
		{"average_ratio", cfg.GetAverageRatio(), 0.26},
		{"thin_bmi", cfg.GetThinBMI(), 19},
		{"average_bmi", cfg.GetAverageBMI(), 22},
		{"heavy_bmi", cfg.GetHeavyBMI(), 27},
		{"tall_threshold_m", cfg.GetTallThresholdM(), 1.80},
		{"short_threshold_m", cfg.GetShortThresholdM(), 1.60},
		{"min_detection_confidence", cfg.GetMinDetectionConfidence(), 0.5},
	}
	for _, f := range floats {
		if f.got != f.want {
			t.Errorf("%s = %v, want %v", f.name, f.got, f.want)
		}
	}

	if got := cfg.GetBufferCapacity(); got != 10 {
		t.Errorf("GetBufferCapacity() = %d, want 10", got)
	}
	if got := cfg.GetUnits(); got != "metric" {
		t.Errorf("GetUnits() = %q, want metric", got)
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "reference_shoulder_width_m": 0.45,
  "buffer_capacity": 5,
  "heel_visibility": 0.4,
  "units": "imperial"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetReferenceShoulderWidthM() != 0.45 {
		t.Errorf("Expected ReferenceShoulderWidthM 0.45, got %f", cfg.GetReferenceShoulderWidthM())
	}
	if cfg.GetBufferCapacity() != 5 {
		t.Errorf("Expected BufferCapacity 5, got %d", cfg.GetBufferCapacity())
	}
	if cfg.GetHeelVisibility() != 0.4 {
		t.Errorf("Expected HeelVisibility 0.4, got %f", cfg.GetHeelVisibility())
	}
	if cfg.GetUnits() != "imperial" {
		t.Errorf("Expected Units imperial, got %q", cfg.GetUnits())
	}
	// Not in the file: defaults apply.
	if cfg.GetNoseVisibility() != 0.5 {
		t.Errorf("Expected default NoseVisibility 0.5, got %f", cfg.GetNoseVisibility())
	}
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "buffer_capacity": "ten"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestLoadConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024)
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadConfig("../../config/stature.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetReferenceShoulderWidthM() != 0.4 {
		t.Errorf("Expected 0.4, got %f", cfg.GetReferenceShoulderWidthM())
	}
	if cfg.GetBufferCapacity() != 10 {
		t.Errorf("Expected 10, got %d", cfg.GetBufferCapacity())
	}
}

func TestLoadExampleConfigFile(t *testing.T) {
	cfg, err := LoadConfig("../../config/stature.example.json")
	if err != nil {
		t.Fatalf("Failed to load example: %v", err)
	}
	if cfg.GetBufferCapacity() != 20 {
		t.Errorf("Expected 20, got %d", cfg.GetBufferCapacity())
	}
	if cfg.GetUnits() != "imperial" {
		t.Errorf("Expected imperial, got %q", cfg.GetUnits())
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetHeightCorrection() != 1.15 {
		t.Errorf("Expected 1.15, got %f", cfg.GetHeightCorrection())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultConfig()},
		{name: "empty config is valid", cfg: &Config{}},
		{
			name:    "visibility above one",
			cfg:     &Config{NoseVisibility: ptrFloat64(1.5)},
			wantErr: true,
		},
		{
			name:    "negative visibility",
			cfg:     &Config{HeelVisibility: ptrFloat64(-0.1)},
			wantErr: true,
		},
		{
			name:    "zero reference width",
			cfg:     &Config{ReferenceShoulderWidthM: ptrFloat64(0)},
			wantErr: true,
		},
		{
			name:    "zero capacity",
			cfg:     &Config{BufferCapacity: ptrInt(0)},
			wantErr: true,
		},
		{
			name:    "thin ratio above average default",
			cfg:     &Config{ThinRatio: ptrFloat64(0.3)},
			wantErr: true,
		},
		{
			name:    "short above tall",
			cfg:     &Config{ShortThresholdM: ptrFloat64(1.9)},
			wantErr: true,
		},
		{
			name:    "unknown units",
			cfg:     &Config{Units: ptrString("cubits")},
			wantErr: true,
		},
		{
			name: "consistent ratio overrides",
			cfg:  &Config{ThinRatio: ptrFloat64(0.3), AverageRatio: ptrFloat64(0.35)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
