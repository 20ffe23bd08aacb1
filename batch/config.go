package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
)

// Config drives a batch run. It can be loaded from a JSON file; flag
// handling in the CLI overrides individual fields afterwards.
type Config struct {
	InputDir  string `json:"inputDir" validate:"required"`
	OutputDir string `json:"outputDir" validate:"required"`
	// MinZoom is the shallowest rendered level.
	MinZoom int `json:"minZoom" default:"8" validate:"gte=0,lte=22"`
	// FixedMaxZoom, when 0 or above, bypasses zoom selection entirely.
	FixedMaxZoom int `json:"fixedMaxZoom" default:"-1" validate:"gte=-1,lte=22"`
	// MaxZoomCap bounds the selected zoom; a selection above it is
	// clamped and flagged.
	MaxZoomCap int    `json:"maxZoomCap" default:"22" validate:"gte=0,lte=22"`
	Scheme     string `json:"scheme" default:"xyz" validate:"oneof=xyz tms"`
	// Workers is the number of rasters processed concurrently.
	Workers int `json:"workers" default:"1" validate:"gte=1"`
	// Processes is handed to the tiling tool for its own parallelism.
	// Zero means one per CPU.
	Processes      int    `json:"processes" validate:"gte=1"`
	LatitudePolicy string `json:"latitudePolicy" default:"center" validate:"oneof=center equatorward"`
	// StatsDB is the path of the sqlite outcome database. Empty disables
	// persistence.
	StatsDB  string `json:"statsDB"`
	Quiet    bool   `json:"quiet"`
	LogLevel string `json:"logLevel" default:"info" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() (Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return c, err
	}
	c.fillDynamicDefaults()
	return c, nil
}

func (c *Config) fillDynamicDefaults() {
	if c.Processes == 0 {
		c.Processes = runtime.NumCPU()
	}
}

func (c *Config) UnmarshalJSON(data []byte) error {
	if err := defaults.Set(c); err != nil {
		return err
	}
	if _, err := marshmallow.Unmarshal(data, c, marshmallow.WithExcludeKnownFieldsFromMap(true)); err != nil {
		return err
	}
	c.fillDynamicDefaults()
	return nil
}

// Validate checks field constraints and cross-field consistency.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.FixedMaxZoom >= 0 && c.FixedMaxZoom < c.MinZoom {
		return fmt.Errorf("fixed max zoom %d below min zoom %d", c.FixedMaxZoom, c.MinZoom)
	}
	if c.MaxZoomCap < c.MinZoom {
		return fmt.Errorf("max zoom cap %d below min zoom %d, every job would be degenerate", c.MaxZoomCap, c.MinZoom)
	}
	return nil
}

// LoadConfig reads a JSON config file.
func LoadConfig(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err = json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return c, nil
}
