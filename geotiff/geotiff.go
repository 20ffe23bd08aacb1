// Package geotiff reads georeferencing metadata from (Big)TIFF rasters.
// It parses just enough of the TIFF structure to derive a resolution
// sample for zoom selection; pixel data is never touched, so reading a
// multi-gigabyte raster costs a few header seeks.
package geotiff

import (
	"fmt"
	"math"
	"os"

	"github.com/go-spatial/geom"

	"github.com/geobatch/tilepyramid/zoom"
)

// GeoKey IDs, from the GeoTIFF spec.
const (
	geoKeyGeographicType  = 2048
	geoKeyProjectedCSType = 3072
)

// EPSG codes this reader can derive latitudes from. Anything else must
// be reprojected before tiling.
const (
	epsgWGS84       = 4326
	epsgWebMercator = 3857
)

// Web mercator constants, EPSG:3857.
const (
	earthRadius = 6378137.0
	originShift = math.Pi * earthRadius
)

// meters covered by one degree of longitude at the equator
const degreeWidthM = zoom.EquatorialCircumference / 360

// Info is the georeferencing metadata of a single raster.
type Info struct {
	Path       string
	Width      int
	Height     int
	EPSG       int
	PixelSizeX float64     // CRS units per pixel, positive
	PixelSizeY float64     // CRS units per pixel, positive
	Extent     geom.Extent // bounding box in CRS units
}

// Sample is the resolution sample fed to zoom selection: the raster's
// ground sample distance in meters at a representative latitude.
type Sample struct {
	PixelWidthM float64
	LatitudeRad float64
}

// Read parses the georeferencing metadata of the raster at path.
func Read(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	dir, err := readDirectory(f)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	if dir.width == 0 || dir.height == 0 {
		return Info{}, fmt.Errorf("%s: missing image dimensions", path)
	}
	if len(dir.pixelScale) < 2 || len(dir.tiepoint) < 6 {
		return Info{}, fmt.Errorf("%s: no affine georeferencing (ModelPixelScale or ModelTiepoint missing)", path)
	}

	scaleX := math.Abs(dir.pixelScale[0])
	scaleY := math.Abs(dir.pixelScale[1])
	if scaleX == 0 || scaleY == 0 {
		return Info{}, fmt.Errorf("%s: zero pixel scale", path)
	}

	// The tiepoint maps pixel (i,j) to CRS coordinate (x,y); north-up
	// rasters have their origin at the upper-left corner.
	originX := dir.tiepoint[3] - dir.tiepoint[0]*scaleX
	originY := dir.tiepoint[4] + dir.tiepoint[1]*scaleY

	return Info{
		Path:       path,
		Width:      int(dir.width),
		Height:     int(dir.height),
		EPSG:       epsgFromGeoKeys(dir.geoKeys),
		PixelSizeX: scaleX,
		PixelSizeY: scaleY,
		Extent: geom.Extent{
			originX,
			originY - float64(dir.height)*scaleY,
			originX + float64(dir.width)*scaleX,
			originY,
		},
	}, nil
}

// LatitudeBoundsDeg returns the raster's latitude span in degrees.
func (i Info) LatitudeBoundsDeg() (minLat, maxLat float64, err error) {
	switch i.EPSG {
	case epsgWGS84:
		return i.Extent.MinY(), i.Extent.MaxY(), nil
	case epsgWebMercator:
		return mercatorToLat(i.Extent.MinY()), mercatorToLat(i.Extent.MaxY()), nil
	default:
		return 0, 0, fmt.Errorf("%s: cannot derive latitudes for EPSG:%d, reproject to EPSG:4326 or EPSG:3857 first", i.Path, i.EPSG)
	}
}

// Sample derives the resolution sample at the latitude chosen by policy.
func (i Info) Sample(policy zoom.Policy) (Sample, error) {
	minLat, maxLat, err := i.LatitudeBoundsDeg()
	if err != nil {
		return Sample{}, err
	}
	latRad, err := policy.Representative(minLat, maxLat)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: %w", i.Path, err)
	}

	var pixelWidthM float64
	switch i.EPSG {
	case epsgWGS84:
		pixelWidthM = i.PixelSizeX * degreeWidthM * math.Cos(latRad)
	case epsgWebMercator:
		// mercator meters shrink toward the poles
		pixelWidthM = i.PixelSizeX * math.Cos(latRad)
	}
	return Sample{PixelWidthM: pixelWidthM, LatitudeRad: latRad}, nil
}

// Reader reads resolution samples from on-disk GeoTIFFs.
type Reader struct{}

func (Reader) Sample(path string, policy zoom.Policy) (Sample, error) {
	info, err := Read(path)
	if err != nil {
		return Sample{}, err
	}
	return info.Sample(policy)
}

// epsgFromGeoKeys walks the GeoKey directory for a CRS code. Projected
// CRSs take precedence over the underlying geographic CRS.
func epsgFromGeoKeys(geoKeys []uint16) int {
	if len(geoKeys) < 4 {
		return 0
	}
	// header: [version, revision, minor, numberOfKeys]
	numKeys := int(geoKeys[3])
	geographic := 0
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(geoKeys) {
			break
		}
		keyID, value := geoKeys[base], geoKeys[base+3]
		switch keyID {
		case geoKeyProjectedCSType:
			if value > 0 && value < 32767 {
				return int(value)
			}
		case geoKeyGeographicType:
			if value > 0 && value < 32767 {
				geographic = int(value)
			}
		}
	}
	return geographic
}

func mercatorToLat(y float64) float64 {
	lat := (y / originShift) * 180
	return 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180)) - math.Pi/2)
}
