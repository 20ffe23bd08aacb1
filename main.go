package main

import (
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/geobatch/tilepyramid/batch"
	"github.com/geobatch/tilepyramid/gdal"
	"github.com/geobatch/tilepyramid/geotiff"
	"github.com/geobatch/tilepyramid/logging"
	"github.com/geobatch/tilepyramid/stats"
)

const CONFIG string = `config`
const INPUTDIR string = `inputDir`
const OUTPUTDIR string = `outputDir`
const MINZOOM string = `minZoom`
const MAXZOOM string = `maxZoom`
const MAXZOOMCAP string = `maxZoomCap`
const SCHEME string = `scheme`
const WORKERS string = `workers`
const PROCESSES string = `processes`
const LATITUDEPOLICY string = `latitudePolicy`
const STATSDB string = `statsDb`
const QUIET string = `quiet`
const LOGLEVEL string = `logLevel`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "tilepyramid"
	app.Usage = "Batch renders XYZ/TMS tile pyramids from GeoTIFFs, picking the max zoom from each raster's resolution"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    CONFIG,
			Aliases: []string{"c"},
			Usage:   "JSON config file; flags override its fields",
			EnvVars: []string{strcase.ToScreamingSnake(CONFIG)},
		},
		&cli.StringFlag{
			Name:    INPUTDIR,
			Aliases: []string{"i"},
			Usage:   "Directory with the source GeoTIFFs",
			EnvVars: []string{strcase.ToScreamingSnake(INPUTDIR)},
		},
		&cli.StringFlag{
			Name:    OUTPUTDIR,
			Aliases: []string{"o"},
			Usage:   "Directory receiving translated/ copies, tiles/ pyramids and the run log",
			EnvVars: []string{strcase.ToScreamingSnake(OUTPUTDIR)},
		},
		&cli.IntFlag{
			Name:    MINZOOM,
			Usage:   "Shallowest zoom level rendered for every layer",
			Value:   8,
			EnvVars: []string{strcase.ToScreamingSnake(MINZOOM)},
		},
		&cli.IntFlag{
			Name:    MAXZOOM,
			Aliases: []string{"z"},
			Usage:   "Fixed deepest zoom level; omit to select it per raster from the pixel size",
			Value:   -1,
			EnvVars: []string{strcase.ToScreamingSnake(MAXZOOM)},
		},
		&cli.IntFlag{
			Name:    MAXZOOMCAP,
			Usage:   "Upper bound for the selected zoom; deeper selections are clamped and flagged",
			Value:   22,
			EnvVars: []string{strcase.ToScreamingSnake(MAXZOOMCAP)},
		},
		&cli.StringFlag{
			Name:    SCHEME,
			Usage:   "Tile addressing scheme, xyz or tms",
			Value:   "xyz",
			EnvVars: []string{strcase.ToScreamingSnake(SCHEME)},
		},
		&cli.IntFlag{
			Name:    WORKERS,
			Aliases: []string{"w"},
			Usage:   "Rasters processed concurrently",
			Value:   1,
			EnvVars: []string{strcase.ToScreamingSnake(WORKERS)},
		},
		&cli.IntFlag{
			Name:    PROCESSES,
			Aliases: []string{"p"},
			Usage:   "Processes the tiling tool may use per raster, 0 for one per CPU",
			EnvVars: []string{strcase.ToScreamingSnake(PROCESSES)},
		},
		&cli.StringFlag{
			Name:    LATITUDEPOLICY,
			Usage:   "Latitude picked for zoom selection, center or equatorward",
			Value:   "center",
			EnvVars: []string{strcase.ToScreamingSnake(LATITUDEPOLICY)},
		},
		&cli.StringFlag{
			Name:    STATSDB,
			Usage:   "Path of a sqlite database recording per-file outcomes",
			EnvVars: []string{strcase.ToScreamingSnake(STATSDB)},
		},
		&cli.BoolFlag{
			Name:    QUIET,
			Aliases: []string{"q"},
			Usage:   "Suppress console output, the log file is still written",
			EnvVars: []string{strcase.ToScreamingSnake(QUIET)},
		},
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "Log level: debug, info, warn or error",
			Value:   "info",
			EnvVars: []string{strcase.ToScreamingSnake(LOGLEVEL)},
		},
	}

	app.Action = func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if err = cfg.Validate(); err != nil {
			return err
		}
		if err = os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return err
		}

		logger, logCloser, err := logging.Build(logging.Config{
			Level: cfg.LogLevel,
			Quiet: cfg.Quiet,
			Dir:   cfg.OutputDir,
		})
		if err != nil {
			return err
		}
		defer logCloser.Close()

		deps := batch.Deps{
			Metadata:   geotiff.Reader{},
			Translator: gdal.NewTranslator(),
			Renderer:   gdal.NewTiler(),
		}
		if cfg.StatsDB != "" {
			db, err := stats.Open(cfg.StatsDB)
			if err != nil {
				return err
			}
			defer db.Close()
			deps.Sink = db
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = batch.NewRunner(cfg, deps, logger).Run(ctx)
		return err
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig merges the optional config file with flag overrides. A flag
// set on the command line or via its env var wins over the file.
func loadConfig(c *cli.Context) (batch.Config, error) {
	var cfg batch.Config
	var err error
	if path := c.String(CONFIG); path != "" {
		cfg, err = batch.LoadConfig(path)
	} else {
		cfg, err = batch.DefaultConfig()
	}
	if err != nil {
		return cfg, err
	}

	if c.IsSet(INPUTDIR) || cfg.InputDir == "" {
		cfg.InputDir = c.String(INPUTDIR)
	}
	if c.IsSet(OUTPUTDIR) || cfg.OutputDir == "" {
		cfg.OutputDir = c.String(OUTPUTDIR)
	}
	if c.IsSet(MINZOOM) {
		cfg.MinZoom = c.Int(MINZOOM)
	}
	if c.IsSet(MAXZOOM) {
		cfg.FixedMaxZoom = c.Int(MAXZOOM)
	}
	if c.IsSet(MAXZOOMCAP) {
		cfg.MaxZoomCap = c.Int(MAXZOOMCAP)
	}
	if c.IsSet(SCHEME) {
		cfg.Scheme = c.String(SCHEME)
	}
	if c.IsSet(WORKERS) {
		cfg.Workers = c.Int(WORKERS)
	}
	if c.IsSet(PROCESSES) {
		cfg.Processes = c.Int(PROCESSES)
		if cfg.Processes == 0 {
			cfg.Processes = runtime.NumCPU()
		}
	}
	if c.IsSet(LATITUDEPOLICY) {
		cfg.LatitudePolicy = c.String(LATITUDEPOLICY)
	}
	if c.IsSet(STATSDB) {
		cfg.StatsDB = c.String(STATSDB)
	}
	if c.IsSet(QUIET) {
		cfg.Quiet = c.Bool(QUIET)
	}
	if c.IsSet(LOGLEVEL) {
		cfg.LogLevel = c.String(LOGLEVEL)
	}
	return cfg, nil
}
