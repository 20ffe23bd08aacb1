package zoom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectExactBoundary(t *testing.T) {
	// A pixel width exactly matching the tile pixel width at zoom 10 and
	// the equator must select 10, not 11.
	w := EquatorialCircumference / math.Exp2(18)
	got, err := Select(w, 0)
	require.NoError(t, err)
	require.Equal(t, Selection{Level: 10, Clamped: false}, got)
}

func TestSelectKnownValues(t *testing.T) {
	var tests = []struct {
		pixelWidthM float64
		latitudeRad float64
		want        int
	}{
		// 30m SRTM-like raster at the equator: between z12 (38.22m) and z13 (19.11m).
		0: {pixelWidthM: 30, latitudeRad: 0, want: 13},
		// 1m orthophoto at the equator: between z17 (1.19m) and z18 (0.60m).
		1: {pixelWidthM: 1, latitudeRad: 0, want: 18},
		// 10m raster at ~34.74N, the latitude baked into the first version of this tool.
		2: {pixelWidthM: 10, latitudeRad: 34.74 * math.Pi / 180, want: 14},
	}
	for k, test := range tests {
		got, err := Select(test.pixelWidthM, test.latitudeRad)
		if err != nil {
			t.Fatalf("test: %d, unexpected error: %v", k, err)
		}
		if got.Level != test.want || got.Clamped {
			t.Errorf("test: %d, expected: %d got: %+v", k, test.want, got)
		}
	}
}

// The selected zoom must be sound (tile pixels at least as fine as the
// source) and minimal (one level coarser would lose detail).
func TestSelectSoundAndMinimal(t *testing.T) {
	widths := []float64{0.5, 1, 3.7, 10, 30, 152.87, 1000, 12345}
	lats := []float64{0, 0.3, -0.3, 0.6063, 1.0, -1.2, 1.4}
	for _, w := range widths {
		for _, l := range lats {
			sel, err := Select(w, l)
			require.NoError(t, err)
			if sel.Clamped {
				continue
			}
			require.LessOrEqualf(t, PixelWidthAt(sel.Level, l), w,
				"w=%v l=%v z=%d: selected zoom coarser than source", w, l, sel.Level)
			if sel.Level > MinSupported {
				require.Greaterf(t, PixelWidthAt(sel.Level-1, l), w,
					"w=%v l=%v z=%d: one level coarser would not lose detail", w, l, sel.Level)
			}
		}
	}
}

// A finer source never selects a shallower zoom.
func TestSelectMonotonicInWidth(t *testing.T) {
	lat := 0.4
	prev := MaxSupported + 1
	for _, w := range []float64{0.1, 0.5, 2, 8, 32, 128, 512, 2048} {
		sel, err := Select(w, lat)
		require.NoError(t, err)
		require.LessOrEqual(t, sel.Level, prev, "w=%v", w)
		prev = sel.Level
	}
}

// Tile pixels on the ground shrink with cos(latitude) at a fixed zoom,
// so at fixed source width the crossover is reached at the same or a
// shallower zoom the further the raster is from the equator.
func TestSelectLatitudeSensitivity(t *testing.T) {
	w := 25.0
	prev := MaxSupported
	for _, l := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4, 1.5} {
		sel, err := Select(w, l)
		require.NoError(t, err)
		require.LessOrEqual(t, sel.Level, prev, "l=%v", l)
		prev = sel.Level

		neg, err := Select(w, -l)
		require.NoError(t, err)
		require.Equal(t, sel, neg, "selection must be symmetric in latitude")
	}
}

func TestSelectPreconditions(t *testing.T) {
	var tests = []struct {
		name        string
		pixelWidthM float64
		latitudeRad float64
		want        error
	}{
		0: {name: "zero width", pixelWidthM: 0, latitudeRad: 0, want: ErrPixelWidth},
		1: {name: "negative width", pixelWidthM: -5, latitudeRad: 0, want: ErrPixelWidth},
		2: {name: "NaN width", pixelWidthM: math.NaN(), latitudeRad: 0, want: ErrPixelWidth},
		3: {name: "infinite width", pixelWidthM: math.Inf(1), latitudeRad: 0, want: ErrPixelWidth},
		4: {name: "north pole", pixelWidthM: 10, latitudeRad: math.Pi / 2, want: ErrLatitude},
		5: {name: "south pole", pixelWidthM: 10, latitudeRad: -math.Pi / 2, want: ErrLatitude},
		6: {name: "beyond pole", pixelWidthM: 10, latitudeRad: 2, want: ErrLatitude},
		7: {name: "NaN latitude", pixelWidthM: 10, latitudeRad: math.NaN(), want: ErrLatitude},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Select(test.pixelWidthM, test.latitudeRad)
			require.ErrorIs(t, err, test.want)

			_, err = Continuous(test.pixelWidthM, test.latitudeRad)
			require.ErrorIs(t, err, test.want)
		})
	}
}

func TestSelectClamping(t *testing.T) {
	// A source fine enough to demand zoom 30 must be capped at the
	// supported maximum, with the clamped flag raised.
	w := PixelWidthAt(30, 0)
	got, err := Select(w, 0)
	require.NoError(t, err)
	require.Equal(t, Selection{Level: MaxSupported, Clamped: true}, got)

	// An absurdly coarse source clamps to the minimum.
	got, err = Select(1e9, 0)
	require.NoError(t, err)
	require.Equal(t, Selection{Level: MinSupported, Clamped: true}, got)

	// A custom cap below the unclamped result also flags.
	got, err = SelectWithin(30, 0, 0, 10)
	require.NoError(t, err)
	require.Equal(t, Selection{Level: 10, Clamped: true}, got)

	_, err = SelectWithin(30, 0, 10, 0)
	require.Error(t, err)
}

func TestSelectDeterminism(t *testing.T) {
	first, err := Select(3.14, 0.5)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		again, err := Select(3.14, 0.5)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
