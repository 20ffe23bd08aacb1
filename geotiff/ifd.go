package geotiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tags this reader cares about. Pixel data tags are ignored, only
// georeferencing and dimensions are needed.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
)

// TIFF data types.
const (
	dtByte   = 1
	dtASCII  = 2
	dtShort  = 3
	dtLong   = 4
	dtDouble = 12
	dtLong8  = 16
)

// directory holds the subset of IFD0 needed to georeference a raster.
type directory struct {
	width      uint32
	height     uint32
	pixelScale []float64 // [scaleX, scaleY, scaleZ]
	tiepoint   []float64 // [i, j, k, x, y, z]
	geoKeys    []uint16
}

type entry struct {
	tag      uint16
	dataType uint16
	count    uint64
	value    []byte // inline value bytes, or resolved external data
}

// readDirectory parses the TIFF or BigTIFF header and the first IFD.
// Overview IFDs carry no additional georeferencing and are skipped.
func readDirectory(r io.ReadSeeker) (directory, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return directory{}, fmt.Errorf("reading TIFF header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return directory{}, fmt.Errorf("invalid TIFF byte order mark %q", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	if magic != 42 && magic != 43 {
		return directory{}, fmt.Errorf("invalid TIFF magic %d", magic)
	}
	bigTIFF := magic == 43

	var ifdOffset uint64
	if bigTIFF {
		var rest [8]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return directory{}, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		ifdOffset = bo.Uint64(rest[:])
	} else {
		ifdOffset = uint64(bo.Uint32(header[4:8]))
	}

	entries, err := readEntries(r, bo, ifdOffset, bigTIFF)
	if err != nil {
		return directory{}, err
	}

	var dir directory
	for _, e := range entries {
		switch e.tag {
		case tagImageWidth:
			dir.width = uintValue(e, bo)
		case tagImageLength:
			dir.height = uintValue(e, bo)
		case tagModelPixelScale:
			dir.pixelScale = float64Values(e, bo)
		case tagModelTiepoint:
			dir.tiepoint = float64Values(e, bo)
		case tagGeoKeyDirectory:
			dir.geoKeys = uint16Values(e, bo)
		}
	}
	return dir, nil
}

func readEntries(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) ([]entry, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	var count uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		count = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		count = uint64(bo.Uint16(buf[:]))
	}
	if count > 1<<16 {
		return nil, fmt.Errorf("implausible IFD entry count %d", count)
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}

	entries := make([]entry, 0, count)
	buf := make([]byte, entrySize)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		var e entry
		e.tag = bo.Uint16(buf[0:2])
		e.dataType = bo.Uint16(buf[2:4])
		if bigTIFF {
			e.count = bo.Uint64(buf[4:12])
			e.value = append([]byte(nil), buf[12:20]...)
		} else {
			e.count = uint64(bo.Uint32(buf[4:8]))
			e.value = append([]byte(nil), buf[8:12]...)
		}
		entries = append(entries, e)
	}

	// Entries whose data does not fit inline carry an offset instead;
	// resolve those after the fixed-size part has been read.
	for i := range entries {
		if err := resolve(r, bo, &entries[i], bigTIFF); err != nil {
			return nil, fmt.Errorf("resolving tag %d: %w", entries[i].tag, err)
		}
	}
	return entries, nil
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII:
		return 1
	case dtShort:
		return 2
	case dtLong:
		return 4
	case dtDouble, dtLong8:
		return 8
	default:
		return 1
	}
}

func resolve(r io.ReadSeeker, bo binary.ByteOrder, e *entry, bigTIFF bool) error {
	total := int(e.count) * dataTypeSize(e.dataType)
	inline := 4
	if bigTIFF {
		inline = 8
	}
	if total <= inline {
		return nil
	}
	if total > 1<<20 {
		return fmt.Errorf("implausible value size %d", total)
	}

	var offset uint64
	if bigTIFF {
		offset = bo.Uint64(e.value)
	} else {
		offset = uint64(bo.Uint32(e.value))
	}
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, total)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.value = data
	return nil
}

func uintValue(e entry, bo binary.ByteOrder) uint32 {
	switch e.dataType {
	case dtShort:
		if len(e.value) >= 2 {
			return uint32(bo.Uint16(e.value))
		}
	case dtLong:
		if len(e.value) >= 4 {
			return bo.Uint32(e.value)
		}
	case dtLong8:
		if len(e.value) >= 8 {
			return uint32(bo.Uint64(e.value))
		}
	}
	return 0
}

func uint16Values(e entry, bo binary.ByteOrder) []uint16 {
	if e.dataType != dtShort {
		return nil
	}
	n := int(e.count)
	if len(e.value) < n*2 {
		return nil
	}
	vals := make([]uint16, n)
	for i := 0; i < n; i++ {
		vals[i] = bo.Uint16(e.value[i*2:])
	}
	return vals
}

func float64Values(e entry, bo binary.ByteOrder) []float64 {
	if e.dataType != dtDouble {
		return nil
	}
	n := int(e.count)
	if len(e.value) < n*8 {
		return nil
	}
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = math.Float64frombits(bo.Uint64(e.value[i*8:]))
	}
	return vals
}
