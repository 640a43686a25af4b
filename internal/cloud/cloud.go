// Package cloud reads and writes point clouds for the fog simulator. The
// simulation core stays dataset-agnostic: it only ever sees []fog.Point, and
// the Source/Sink interfaces here are the seam where dataset-specific
// loaders plug in.
package cloud

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/banshee-data/fogsim/internal/fog"
	"github.com/banshee-data/fogsim/internal/fsutil"
)

// Source loads a clear-weather point cloud from a path.
type Source interface {
	ReadCloud(path string) ([]fog.Point, error)
}

// Sink writes a fog-augmented cloud, including its outcome tags, to a path.
type Sink interface {
	WriteCloud(path string, c *fog.Cloud) error
}

// pointRecordSize is the wire size of one point: four little-endian float32
// values (x, y, z, intensity), the layout used by KITTI-style .bin scans.
const pointRecordSize = 16

// XYZIFile reads and writes raw binary float32 (x, y, z, intensity) clouds.
// The zero value uses the real filesystem.
type XYZIFile struct {
	FS fsutil.FileSystem
}

func (f *XYZIFile) fs() fsutil.FileSystem {
	if f.FS != nil {
		return f.FS
	}
	return fsutil.OSFileSystem{}
}

// ReadCloud parses a binary XYZI file into points. Channel identifiers are
// not part of the wire format and are left zero.
func (f *XYZIFile) ReadCloud(path string) ([]fog.Point, error) {
	data, err := f.fs().ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%pointRecordSize != 0 {
		return nil, fmt.Errorf("%s: %d bytes is not a whole number of %d-byte point records",
			path, len(data), pointRecordSize)
	}

	points := make([]fog.Point, len(data)/pointRecordSize)
	for i := range points {
		off := i * pointRecordSize
		points[i] = fog.Point{
			X:         float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))),
			Y:         float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))),
			Z:         float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:]))),
			Intensity: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+12:]))),
		}
	}
	return points, nil
}

// WriteCloud writes the augmented points in the same binary XYZI layout.
// Outcome tags are not representable in the binary format; training
// pipelines that only need positions and intensities consume this output,
// while ExportASC keeps the tags.
func (f *XYZIFile) WriteCloud(path string, c *fog.Cloud) error {
	data := make([]byte, len(c.Points)*pointRecordSize)
	for i, p := range c.Points {
		off := i * pointRecordSize
		binary.LittleEndian.PutUint32(data[off:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(data[off+4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(data[off+8:], math.Float32bits(float32(p.Z)))
		binary.LittleEndian.PutUint32(data[off+12:], math.Float32bits(float32(p.Intensity)))
	}
	fsys := f.fs()
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return fsys.WriteFile(path, data, 0644)
}

// ExportASC writes a CloudCompare-compatible .asc text file with one line
// per point: X Y Z Intensity Outcome. Viewers use the outcome column to
// toggle the display of fog-only points.
func ExportASC(fsys fsutil.FileSystem, path string, c *fog.Cloud) error {
	if c.Len() == 0 {
		return fmt.Errorf("no points to export")
	}
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	var b strings.Builder
	b.WriteString("# Fog-augmented points\n")
	b.WriteString("# Format: X Y Z Intensity Outcome\n")
	for i, p := range c.Points {
		fmt.Fprintf(&b, "%.6f %.6f %.6f %.6f %s\n", p.X, p.Y, p.Z, p.Intensity, c.Outcomes[i])
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return fsys.WriteFile(path, []byte(b.String()), 0644)
}
