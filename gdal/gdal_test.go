package gdal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geobatch/tilepyramid/batch"
)

func TestRenderArgs(t *testing.T) {
	xyz, err := batch.NewTileJob("in.tif", "out/layer", 8, 14, batch.XYZ, 4)
	require.NoError(t, err)
	require.Equal(t,
		[]string{"-z", "8-14", "-e", "--processes=4", "--xyz", "in.tif", "out/layer"},
		renderArgs(xyz))

	tms, err := batch.NewTileJob("in.tif", "out/layer", 0, 22, batch.TMS, 1)
	require.NoError(t, err)
	require.Equal(t,
		[]string{"-z", "0-22", "-e", "--processes=1", "in.tif", "out/layer"},
		renderArgs(tms))
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"empty", "", ""},
		{"single", "ERROR 1: not recognized as a supported file format\n", "ERROR 1: not recognized as a supported file format"},
		{"multi", "processing...\nwarning: thing\nERROR 4: open failed\n", "ERROR 4: open failed"},
		{"trailing blanks", "ERROR 2\n\n\n", "ERROR 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, lastLine([]byte(tt.out)))
		})
	}
}

func TestRunMissingBinary(t *testing.T) {
	translator := &Translator{Bin: "definitely-not-gdal-translate", OutputType: "Byte"}
	err := translator.Translate(context.Background(), "in.tif", "out.tif")
	require.Error(t, err)
	require.Contains(t, err.Error(), "definitely-not-gdal-translate")
}
