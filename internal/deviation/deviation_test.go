package deviation

import (
	"testing"

	"github.com/meridianops/voyagesim/internal/geo"
)

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(0, Offset{})
	if d.Threshold() != DefaultThreshold {
		t.Errorf("threshold: got %v, want %v", d.Threshold(), DefaultThreshold)
	}
	if d.offset.Lat != DefaultOffsetLat || d.offset.Lon != DefaultOffsetLon {
		t.Errorf("offset: got %+v", d.offset)
	}

	d = NewDetector(0.5, Offset{Lat: 1, Lon: -1})
	if d.Threshold() != 0.5 {
		t.Errorf("explicit threshold: got %v", d.Threshold())
	}
}

func TestEvaluate_FiresAtThreshold(t *testing.T) {
	d := NewDetector(0.3, Offset{Lat: 2.5, Lon: -1.8})

	// below threshold: quiet
	if _, fired := d.Evaluate(geo.Fix{SegmentIndex: 0, Fraction: 0.29}, 10, false); fired {
		t.Error("fired below threshold")
	}

	// at threshold: fires with the offset applied
	fix := geo.Fix{SegmentIndex: 0, Fraction: 0.3, Lat: 41.5, Lon: -60.0}
	rec, fired := d.Evaluate(fix, 12, false)
	if !fired {
		t.Fatal("did not fire at threshold")
	}
	if rec.DetectedAtStep != 12 {
		t.Errorf("step: got %d", rec.DetectedAtStep)
	}
	if rec.Expected.Lat != 41.5 || rec.Expected.Lon != -60.0 {
		t.Errorf("expected position: got %+v", rec.Expected)
	}
	if rec.Observed.Lat != 44.0 || rec.Observed.Lon != -61.8 {
		t.Errorf("observed position: got %+v", rec.Observed)
	}
}

func TestEvaluate_OneShot(t *testing.T) {
	d := NewDetector(0.3, Offset{})
	fix := geo.Fix{SegmentIndex: 0, Fraction: 0.5}

	// active deviation suppresses further firings
	if _, fired := d.Evaluate(fix, 20, true); fired {
		t.Error("fired while a deviation is already active")
	}

	// after the caller clears the active flag the rule is armed again
	if _, fired := d.Evaluate(fix, 21, false); !fired {
		t.Error("did not re-fire after re-arm")
	}
}

func TestEvaluate_SegmentScoped(t *testing.T) {
	d := NewDetector(0.3, Offset{})

	for _, seg := range []int{1, 2, 5} {
		if _, fired := d.Evaluate(geo.Fix{SegmentIndex: seg, Fraction: 0.9}, 30, false); fired {
			t.Errorf("fired on segment %d", seg)
		}
	}
}
