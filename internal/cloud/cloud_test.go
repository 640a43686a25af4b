package cloud

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/fogsim/internal/fog"
	"github.com/banshee-data/fogsim/internal/fsutil"
)

func TestXYZIFileRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	f := &XYZIFile{FS: fs}

	in := &fog.Cloud{
		Points: []fog.Point{
			{X: 1.5, Y: -2.25, Z: 0.125, Intensity: 0.5},
			{X: 40, Y: 0, Z: -1.75, Intensity: 1},
			{X: -7.5, Y: 33.25, Z: 2, Intensity: 0},
		},
		Outcomes: []fog.Outcome{fog.OutcomeAttenuated, fog.OutcomeReplaced, fog.OutcomeAttenuated},
	}
	if err := f.WriteCloud("out/scene.bin", in); err != nil {
		t.Fatalf("WriteCloud failed: %v", err)
	}

	got, err := f.ReadCloud("out/scene.bin")
	if err != nil {
		t.Fatalf("ReadCloud failed: %v", err)
	}
	// Values above are exactly representable as float32, so the roundtrip
	// is lossless; the approx option covers any future non-dyadic fixtures.
	if diff := cmp.Diff(in.Points, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("roundtrip mismatch (-wrote +read):\n%s", diff)
	}
}

func TestXYZIFileRejectsTruncatedFile(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("bad.bin", make([]byte, pointRecordSize+7), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	f := &XYZIFile{FS: fs}
	if _, err := f.ReadCloud("bad.bin"); err == nil {
		t.Error("expected error for truncated record")
	}
}

func TestXYZIFileMissing(t *testing.T) {
	f := &XYZIFile{FS: fsutil.NewMemoryFileSystem()}
	if _, err := f.ReadCloud("absent.bin"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestXYZIFileEmpty(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	f := &XYZIFile{FS: fs}
	if err := f.WriteCloud("empty.bin", &fog.Cloud{}); err != nil {
		t.Fatalf("WriteCloud failed: %v", err)
	}
	points, err := f.ReadCloud("empty.bin")
	if err != nil {
		t.Fatalf("ReadCloud failed: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("expected empty cloud, got %d points", len(points))
	}
}

func TestExportASC(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	c := &fog.Cloud{
		Points: []fog.Point{
			{X: 1, Y: 2, Z: 3, Intensity: 0.5},
			{X: 4, Y: 5, Z: 6, Intensity: 0.25},
		},
		Outcomes: []fog.Outcome{fog.OutcomeAttenuated, fog.OutcomeReplaced},
	}
	if err := ExportASC(fs, "export/scene.asc", c); err != nil {
		t.Fatalf("ExportASC failed: %v", err)
	}

	data, err := fs.ReadFile("export/scene.asc")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "# Format: X Y Z Intensity Outcome") {
		t.Error("missing format header")
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 2 header + 2 point lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[2], "attenuated") {
		t.Errorf("line %q should carry the attenuated tag", lines[2])
	}
	if !strings.HasSuffix(lines[3], "replaced") {
		t.Errorf("line %q should carry the replaced tag", lines[3])
	}
}

func TestExportASCEmpty(t *testing.T) {
	if err := ExportASC(fsutil.NewMemoryFileSystem(), "x.asc", &fog.Cloud{}); err == nil {
		t.Error("expected error for empty cloud")
	}
}
