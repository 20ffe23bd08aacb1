// Package zoom selects the deepest useful slippy-map zoom level for a
// raster from its native ground resolution.
//
// The nominal width in meters of one tile pixel at integer zoom z and
// latitude l is C * cos(l) / 2^(z+8), with C the equatorial circumference
// and 8 the exponent of the 256px tile edge. Inverting for z and rounding
// up yields the smallest zoom whose tiles are at least as fine as the
// source, so no deeper levels need to be rendered.
package zoom

import (
	"errors"
	"fmt"
	"math"

	"github.com/geobatch/tilepyramid/mathhelp"
)

const (
	// EquatorialCircumference is the WGS84 equatorial circumference in meters.
	EquatorialCircumference = 40075016.686

	// tileSizeExp is log2 of the 256px tile edge.
	tileSizeExp = 8

	// MinSupported and MaxSupported bound the zoom levels this program
	// will hand to the tiling tool.
	MinSupported = 0
	MaxSupported = 22
)

var (
	ErrPixelWidth = errors.New("pixel width must be a positive finite number of meters")
	ErrLatitude   = errors.New("latitude must be finite and strictly between -pi/2 and pi/2")
)

// PixelWidthAt returns the nominal ground width in meters of one tile
// pixel at the given zoom level and latitude in radians.
func PixelWidthAt(level int, latitudeRad float64) float64 {
	return EquatorialCircumference * math.Cos(latitudeRad) / math.Exp2(float64(level+tileSizeExp))
}

// Continuous returns the real-valued zoom level at which the tile pixel
// width crosses pixelWidthM at the given latitude in radians.
func Continuous(pixelWidthM, latitudeRad float64) (float64, error) {
	if math.IsNaN(pixelWidthM) || math.IsInf(pixelWidthM, 0) || pixelWidthM <= 0 {
		return 0, fmt.Errorf("%w, got %v", ErrPixelWidth, pixelWidthM)
	}
	if math.IsNaN(latitudeRad) || math.Abs(latitudeRad) >= math.Pi/2 {
		return 0, fmt.Errorf("%w, got %v", ErrLatitude, latitudeRad)
	}
	return math.Log2(EquatorialCircumference*math.Cos(latitudeRad)/pixelWidthM) - tileSizeExp, nil
}

// Selection is an integer zoom level choice. Clamped is set when the
// unclamped choice fell outside the supported range, meaning the deepest
// rendered tiles may still be coarser than the source.
type Selection struct {
	Level   int
	Clamped bool
}

// Select returns the smallest integer zoom level whose tile pixel width
// is no coarser than pixelWidthM, clamped into
// [MinSupported, MaxSupported].
func Select(pixelWidthM, latitudeRad float64) (Selection, error) {
	return SelectWithin(pixelWidthM, latitudeRad, MinSupported, MaxSupported)
}

// SelectWithin is Select with a caller-supplied supported range.
func SelectWithin(pixelWidthM, latitudeRad float64, minLevel, maxLevel int) (Selection, error) {
	if minLevel > maxLevel {
		return Selection{}, fmt.Errorf("invalid zoom range [%d, %d]", minLevel, maxLevel)
	}
	z, err := Continuous(pixelWidthM, latitudeRad)
	if err != nil {
		return Selection{}, err
	}
	level := int(math.Ceil(z))
	return Selection{
		Level:   mathhelp.Clamp(level, minLevel, maxLevel),
		Clamped: !mathhelp.BetweenInc(level, minLevel, maxLevel),
	}, nil
}
