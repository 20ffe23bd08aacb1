// Package batch runs the translate-then-tile pipeline over a directory
// of GeoTIFFs. One misbehaving raster is logged, recorded and skipped;
// it never takes the rest of the batch down with it.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/muesli/reflow/truncate"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/exp/slices"

	"github.com/geobatch/tilepyramid/ledger"
	"github.com/geobatch/tilepyramid/zoom"
)

// ErrDegenerateJob flags a raster whose selected max zoom lies below the
// configured min zoom. That points at a metadata or configuration
// anomaly, so the job is surfaced instead of silently clamped.
var ErrDegenerateJob = errors.New("selected max zoom below configured min zoom")

// Deps are the collaborators a run needs. Sink may be nil.
type Deps struct {
	Metadata   MetadataReader
	Translator Translator
	Renderer   Renderer
	Sink       Sink
}

type Runner struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
}

func NewRunner(cfg Config, deps Deps, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, deps: deps, log: log}
}

// Run processes every .tif/.tiff directly under cfg.InputDir and returns
// the outcome ledger. Per-file failures are recorded in the ledger only;
// Run itself fails just on setup problems (unreadable input dir,
// unusable output dirs) or cancellation.
func (r *Runner) Run(ctx context.Context) (*ledger.Ledger[Outcome], error) {
	files, err := listTiffs(r.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	translatedDir := filepath.Join(r.cfg.OutputDir, "translated")
	tilesDir := filepath.Join(r.cfg.OutputDir, "tiles")
	for _, dir := range []string{translatedDir, tilesDir} {
		if err = ensureDir(dir); err != nil {
			return nil, err
		}
	}
	r.log.Info().Int("files", len(files)).Str("inputDir", r.cfg.InputDir).Msg("starting batch")

	outcomes := ledger.New[Outcome](len(files))
	var bar *progressbar.ProgressBar
	if !r.cfg.Quiet {
		bar = progressbar.Default(int64(len(files)), "tiling")
	}

	jobs := make(chan string)
	wg := sync.WaitGroup{}
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				outcome := r.processFile(ctx, file, translatedDir, tilesDir)
				outcomes.Append(outcome.FileName, outcome)
				if r.deps.Sink != nil {
					if err := r.deps.Sink.Record(outcome); err != nil {
						r.log.Error().Err(err).Str("file", outcome.FileName).Msg("recording outcome failed")
					}
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

submit:
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break submit
		case jobs <- file:
		}
	}
	close(jobs)
	wg.Wait()

	r.summarize(outcomes)
	return outcomes, ctx.Err()
}

//nolint:funlen
func (r *Runner) processFile(ctx context.Context, path, translatedDir, tilesDir string) Outcome {
	name := filepath.Base(path)
	layerName := strings.TrimSuffix(name, filepath.Ext(name))
	log := r.log.With().Str("file", shortName(name)).Logger()
	outcome := Outcome{FileName: name, MaxZoom: -1, Timestamp: time.Now()}

	fail := func(err error, msg string) Outcome {
		log.Error().Err(err).Msg(msg)
		outcome.Err = err.Error()
		return outcome
	}

	// Translating is skipped when a previous run already produced the
	// 8-bit copy, same as the tiling tool's own resume mode.
	translatedPath := filepath.Join(translatedDir, name)
	if _, err := os.Stat(translatedPath); err != nil {
		start := time.Now()
		if err = r.deps.Translator.Translate(ctx, path, translatedPath); err != nil {
			return fail(err, "bit depth translation failed")
		}
		outcome.TranslateDuration = time.Since(start)
		log.Debug().Dur("duration", outcome.TranslateDuration).Msg("translated to 8-bit")
	} else {
		log.Debug().Msg("translated copy exists, skipping translation")
	}

	maxZoom := r.cfg.FixedMaxZoom
	if maxZoom < 0 {
		sample, err := r.deps.Metadata.Sample(translatedPath, zoom.Policy(r.cfg.LatitudePolicy))
		if err != nil {
			return fail(err, "reading raster metadata failed")
		}
		sel, err := zoom.SelectWithin(sample.PixelWidthM, sample.LatitudeRad, zoom.MinSupported, r.cfg.MaxZoomCap)
		if err != nil {
			return fail(err, "zoom selection failed")
		}
		maxZoom = sel.Level
		outcome.Clamped = sel.Clamped
		if sel.Clamped {
			log.Warn().
				Int("maxZoom", maxZoom).
				Float64("pixelWidthM", sample.PixelWidthM).
				Msg("zoom capped, deepest tiles may be coarser than the source")
		}
	}
	outcome.MaxZoom = maxZoom

	job, err := NewTileJob(
		translatedPath,
		filepath.Join(tilesDir, layerName),
		r.cfg.MinZoom, maxZoom, Scheme(r.cfg.Scheme), r.cfg.Processes,
	)
	if err != nil {
		return fail(fmt.Errorf("%w: %d < %d", ErrDegenerateJob, maxZoom, r.cfg.MinZoom), "degenerate job, skipping")
	}
	if err = ensureDir(job.OutputPath); err != nil {
		return fail(err, "creating layer output directory failed")
	}

	start := time.Now()
	if err = r.deps.Renderer.Render(ctx, job); err != nil {
		return fail(err, "tile rendering failed")
	}
	outcome.TilingDuration = time.Since(start)
	log.Info().
		Int("minZoom", job.MinZoom).
		Int("maxZoom", job.MaxZoom).
		Dur("duration", outcome.TilingDuration).
		Msg("layer tiled")
	return outcome
}

func (r *Runner) summarize(outcomes *ledger.Ledger[Outcome]) {
	failures := 0
	durations := ledger.New[time.Duration](outcomes.Len())
	outcomes.Each(func(k string, o Outcome) {
		if o.Failed() {
			failures++
			return
		}
		durations.Append(k, o.TilingDuration)
	})
	r.log.Info().Int("files", outcomes.Len()).Int("failed", failures).Msg("batch finished")
	if durations.Len() == 0 {
		return
	}
	slowest, d, _ := ledger.MaxValueKey(durations)
	r.log.Info().Str("file", shortName(slowest)).Dur("duration", d).Msg("slowest layer")
	for _, k := range ledger.RankByValue(durations) {
		o, _ := outcomes.Get(k)
		r.log.Debug().
			Str("file", shortName(k)).
			Dur("tiling", o.TilingDuration).
			Int("maxZoom", o.MaxZoom).
			Msg("layer timing")
	}
}

// listTiffs returns the TIFF files directly under dir, sorted by name.
func listTiffs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path %s exists and is not a directory", dir)
		}
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// shortName keeps log lines readable when rasters carry very long names.
func shortName(name string) string {
	return truncate.StringWithTail(name, 48, "…")
}
