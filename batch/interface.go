package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/geobatch/tilepyramid/geotiff"
	"github.com/geobatch/tilepyramid/zoom"
)

// Scheme selects the tile addressing convention handed to the renderer.
type Scheme string

const (
	// XYZ is the OSM slippy map convention with the y axis pointing south.
	XYZ Scheme = "xyz"
	// TMS is the OSGeo convention with the y axis pointing north.
	TMS Scheme = "tms"
)

// TileJob describes one pyramid render for the tiling tool.
type TileJob struct {
	InputPath  string
	OutputPath string
	MinZoom    int
	MaxZoom    int
	Scheme     Scheme
	Processes  int
}

// NewTileJob validates the zoom range up front so a malformed job can
// never reach the external tool.
func NewTileJob(inputPath, outputPath string, minZoom, maxZoom int, scheme Scheme, processes int) (TileJob, error) {
	if minZoom > maxZoom {
		return TileJob{}, fmt.Errorf("min zoom %d above max zoom %d", minZoom, maxZoom)
	}
	return TileJob{
		InputPath:  inputPath,
		OutputPath: outputPath,
		MinZoom:    minZoom,
		MaxZoom:    maxZoom,
		Scheme:     scheme,
		Processes:  processes,
	}, nil
}

// MetadataReader supplies the resolution sample for a raster.
type MetadataReader interface {
	Sample(path string, policy zoom.Policy) (geotiff.Sample, error)
}

// Translator rescales a raster's bit depth for tiling.
type Translator interface {
	Translate(ctx context.Context, src, dst string) error
}

// Renderer renders a tile pyramid from a job description.
type Renderer interface {
	Render(ctx context.Context, job TileJob) error
}

// Sink persists outcomes. Implementations must tolerate concurrent calls.
type Sink interface {
	Record(Outcome) error
}

// Outcome is the per-file result of a batch run. Written once, never
// mutated afterwards.
type Outcome struct {
	FileName          string
	TranslateDuration time.Duration
	TilingDuration    time.Duration
	MaxZoom           int
	Clamped           bool
	Err               string
	Timestamp         time.Time
}

// Failed reports whether the file was skipped with an error.
func (o Outcome) Failed() bool {
	return o.Err != ""
}
