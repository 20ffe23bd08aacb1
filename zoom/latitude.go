package zoom

import (
	"fmt"
	"math"
)

// Policy picks the single latitude at which a raster's resolution is
// sampled. Tile pixels on the ground shrink with cos(latitude) at a
// fixed zoom, so a raster spanning a latitude range has a per-row
// crossover zoom that is deepest at the edge nearest the equator; the
// policy decides which row wins.
type Policy string

const (
	// PolicyCenter samples the raster's center latitude.
	PolicyCenter Policy = "center"
	// PolicyEquatorward samples the edge nearest the equator, the row
	// demanding the deepest zoom. Always detail preserving, at the cost
	// of over-rendering the poleward rows.
	PolicyEquatorward Policy = "equatorward"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyCenter, PolicyEquatorward:
		return Policy(s), nil
	case "":
		return PolicyCenter, nil
	default:
		return "", fmt.Errorf("unknown latitude policy %q, want center or equatorward", s)
	}
}

// Representative returns the sampled latitude in radians for a raster
// spanning [minLatDeg, maxLatDeg].
func (p Policy) Representative(minLatDeg, maxLatDeg float64) (float64, error) {
	if minLatDeg > maxLatDeg {
		return 0, fmt.Errorf("inverted latitude bounds [%v, %v]", minLatDeg, maxLatDeg)
	}
	var latDeg float64
	switch p {
	case PolicyCenter, "":
		latDeg = (minLatDeg + maxLatDeg) / 2
	case PolicyEquatorward:
		switch {
		case minLatDeg <= 0 && maxLatDeg >= 0:
			latDeg = 0
		case math.Abs(minLatDeg) < math.Abs(maxLatDeg):
			latDeg = minLatDeg
		default:
			latDeg = maxLatDeg
		}
	default:
		return 0, fmt.Errorf("unknown latitude policy %q", string(p))
	}
	return latDeg * math.Pi / 180, nil
}
