package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pose.report/internal/poselog"
)

// DefaultConfigPath is the path to the canonical analyzer defaults file.
const DefaultConfigPath = "config/analyzer.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Landmark is the JSON form of one landmark definition.
type Landmark struct {
	Keyword string `json:"keyword"`
	Indices [2]int `json:"indices"`
	Color   string `json:"color,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
}

// AnalyzerConfig is the root configuration. Every field is optional; the
// Get* accessors supply defaults for anything the file leaves out.
type AnalyzerConfig struct {
	// Directory layout, relative to RootDir unless absolute.
	RootDir *string `json:"root_dir,omitempty"`
	LogDir  *string `json:"log_dir,omitempty"`
	MapDir  *string `json:"map_dir,omitempty"`
	OutDir  *string `json:"out_dir,omitempty"`

	// Parsing
	StateKeyword *string    `json:"state_keyword,omitempty"`
	RealTimeTag  *string    `json:"realtime_tag,omitempty"`
	Landmarks    []Landmark `json:"landmarks,omitempty"`

	// Analysis
	NearestThreshold *float64 `json:"nearest_threshold,omitempty"`
	RPEStep          *int     `json:"rpe_step,omitempty"`
	Reference        *string  `json:"reference,omitempty"`
	Estimate         *string  `json:"estimate,omitempty"`

	// Serving and persistence
	DatabasePath *string `json:"database_path,omitempty"`
	Listen       *string `json:"listen,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultLandmarks are the landmark definitions used when none are configured.
func DefaultLandmarks() []Landmark {
	return []Landmark{
		{Keyword: "QRCode", Indices: [2]int{0, 1}, Color: "y", Symbol: "s"},
		{Keyword: "Reflector", Indices: [2]int{1, 2}, Color: "c", Symbol: "t1"},
	}
}

// EmptyAnalyzerConfig returns a config with every field unset.
func EmptyAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{}
}

// DefaultAnalyzerConfig returns a config with every field set to its default.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		RootDir:          ptrString("."),
		LogDir:           ptrString("logs"),
		MapDir:           ptrString("map"),
		OutDir:           ptrString("out"),
		StateKeyword:     ptrString(poselog.DefaultStateKeyword),
		RealTimeTag:      ptrString("RealTimeLocation"),
		Landmarks:        DefaultLandmarks(),
		NearestThreshold: ptrFloat64(5.0),
		RPEStep:          ptrInt(1),
		DatabasePath:     ptrString(""),
		Listen:           ptrString(":8080"),
	}
}

// LoadAnalyzerConfig loads an AnalyzerConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadAnalyzerConfig(path string) (*AnalyzerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalyzerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalyzerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalyzerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalyzerConfig) Validate() error {
	if c.NearestThreshold != nil && !(*c.NearestThreshold > 0) {
		return fmt.Errorf("nearest_threshold must be positive, got %v", *c.NearestThreshold)
	}
	if c.RPEStep != nil && *c.RPEStep < 1 {
		return fmt.Errorf("rpe_step must be at least 1, got %d", *c.RPEStep)
	}
	if c.StateKeyword != nil && *c.StateKeyword == "" {
		return fmt.Errorf("state_keyword must not be empty")
	}
	seen := make(map[string]bool)
	for i, lm := range c.Landmarks {
		if lm.Keyword == "" {
			return fmt.Errorf("landmarks[%d]: keyword must not be empty", i)
		}
		if seen[lm.Keyword] {
			return fmt.Errorf("landmarks[%d]: duplicate keyword %q", i, lm.Keyword)
		}
		seen[lm.Keyword] = true
		if lm.Indices[0] < 0 || lm.Indices[1] < 0 {
			return fmt.Errorf("landmarks[%d]: indices must be non-negative, got %v", i, lm.Indices)
		}
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// GetRootDir returns the analysis root directory.
func (c *AnalyzerConfig) GetRootDir() string { return stringOr(c.RootDir, ".") }

// GetLogDir returns the log directory name.
func (c *AnalyzerConfig) GetLogDir() string { return stringOr(c.LogDir, "logs") }

// GetMapDir returns the map directory name.
func (c *AnalyzerConfig) GetMapDir() string { return stringOr(c.MapDir, "map") }

// GetOutDir returns the export directory name.
func (c *AnalyzerConfig) GetOutDir() string { return stringOr(c.OutDir, "out") }

func (c *AnalyzerConfig) join(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.GetRootDir(), dir)
}

// LogPath is the directory scanned for logs.
func (c *AnalyzerConfig) LogPath() string { return c.join(c.GetLogDir()) }

// MapPath is the map directory. Nothing in the analyzer reads it.
func (c *AnalyzerConfig) MapPath() string { return c.join(c.GetMapDir()) }

// OutPath is the export destination.
func (c *AnalyzerConfig) OutPath() string { return c.join(c.GetOutDir()) }

// GetStateKeyword returns the state field name or the default.
func (c *AnalyzerConfig) GetStateKeyword() string {
	return stringOr(c.StateKeyword, poselog.DefaultStateKeyword)
}

// GetRealTimeTag returns the state tag marking real-time poses.
func (c *AnalyzerConfig) GetRealTimeTag() string {
	if c.RealTimeTag == nil {
		return "RealTimeLocation"
	}
	return *c.RealTimeTag
}

// GetLandmarks returns the parser form of the landmark definitions.
func (c *AnalyzerConfig) GetLandmarks() []poselog.LandmarkConfig {
	lms := c.Landmarks
	if lms == nil {
		lms = DefaultLandmarks()
	}
	out := make([]poselog.LandmarkConfig, len(lms))
	for i, lm := range lms {
		out[i] = poselog.LandmarkConfig{
			Keyword: lm.Keyword,
			Indices: lm.Indices,
			Style:   poselog.DisplayStyle{Color: lm.Color, Symbol: lm.Symbol},
		}
	}
	return out
}

// GetNearestThreshold returns the nearest_threshold value or the default.
func (c *AnalyzerConfig) GetNearestThreshold() float64 {
	if c.NearestThreshold == nil {
		return 5.0
	}
	return *c.NearestThreshold
}

// GetRPEStep returns the rpe_step value or the default.
func (c *AnalyzerConfig) GetRPEStep() int {
	if c.RPEStep == nil {
		return 1
	}
	return *c.RPEStep
}

// GetReference returns the configured reference trajectory name, if any.
func (c *AnalyzerConfig) GetReference() string { return stringOr(c.Reference, "") }

// GetEstimate returns the configured estimate trajectory name, if any.
func (c *AnalyzerConfig) GetEstimate() string { return stringOr(c.Estimate, "") }

// GetDatabasePath returns the sqlite path. Empty disables persistence.
func (c *AnalyzerConfig) GetDatabasePath() string { return stringOr(c.DatabasePath, "") }

// GetListen returns the HTTP listen address.
func (c *AnalyzerConfig) GetListen() string { return stringOr(c.Listen, ":8080") }
