// Package gdal shells out to the GDAL command line tools. The heavy
// lifting of reprojection and tile rendering stays in GDAL; this package
// only builds the argument lists and surfaces failures with the tool's
// own diagnostics attached.
package gdal

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/geobatch/tilepyramid/batch"
)

// Translator converts rasters to an 8-bit copy with gdal_translate so
// the tiling tool gets input it can render directly.
type Translator struct {
	Bin        string
	OutputType string
}

func NewTranslator() *Translator {
	return &Translator{Bin: "gdal_translate", OutputType: "Byte"}
}

func (t *Translator) Translate(ctx context.Context, src, dst string) error {
	return run(ctx, t.Bin, []string{"-ot", t.OutputType, "-q", src, dst})
}

// Tiler renders a tile pyramid with gdal2tiles.
type Tiler struct {
	Bin string
}

func NewTiler() *Tiler {
	return &Tiler{Bin: "gdal2tiles.py"}
}

func (t *Tiler) Render(ctx context.Context, job batch.TileJob) error {
	return run(ctx, t.Bin, renderArgs(job))
}

func renderArgs(job batch.TileJob) []string {
	args := []string{
		"-z", fmt.Sprintf("%d-%d", job.MinZoom, job.MaxZoom),
		"-e",
		fmt.Sprintf("--processes=%d", job.Processes),
	}
	// gdal2tiles produces TMS unless told otherwise.
	if job.Scheme == batch.XYZ {
		args = append(args, "--xyz")
	}
	return append(args, job.InputPath, job.OutputPath)
}

func run(ctx context.Context, bin string, args []string) error {
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", bin, err, lastLine(out))
	}
	return nil
}

// lastLine extracts the final non-empty output line, which is where the
// GDAL tools put their error message.
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
