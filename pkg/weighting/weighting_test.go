package weighting

import (
	"math"
	"testing"
)

func TestSpeedLimitKPH(t *testing.T) {
	if got := SpeedLimitKPH("motorway"); got != 110 {
		t.Errorf("SpeedLimitKPH(motorway) = %v, want 110", got)
	}
	if got := SpeedLimitKPH("residential"); got != 30 {
		t.Errorf("SpeedLimitKPH(residential) = %v, want 30", got)
	}
	if got := SpeedLimitKPH("unknown_tag"); got != DefaultSpeedLimitKPH {
		t.Errorf("SpeedLimitKPH(unknown_tag) = %v, want default %v", got, DefaultSpeedLimitKPH)
	}
}

func TestDistanceMeters(t *testing.T) {
	// Raffles Place to Changi Airport, ~18km great-circle.
	got := DistanceMeters(1.2830, 103.8513, 1.3644, 103.9915)
	if math.Abs(got-18_023) > 200 {
		t.Errorf("DistanceMeters = %v, want ~18023", got)
	}
}

func TestDistanceMetersSamePoint(t *testing.T) {
	if got := DistanceMeters(1.35, 103.82, 1.35, 103.82); got != 0 {
		t.Errorf("DistanceMeters(same point) = %v, want 0", got)
	}
}

func TestTimeSeconds(t *testing.T) {
	// 60 km at 60 km/h should take exactly one hour.
	dist := 60_000.0
	// Back-derive two points 60km apart along a meridian (~0.54 degrees lat).
	lat1, lon1 := 0.0, 0.0
	lat2 := dist / 111_000.0
	got := TimeSeconds(lat1, lon1, lat2, lon1, 60)
	if math.Abs(got-3600) > 60 {
		t.Errorf("TimeSeconds = %v, want ~3600", got)
	}
}

func TestTimeSecondsZeroSpeedFallsBackToDefault(t *testing.T) {
	withDefault := TimeSeconds(0, 0, 0.01, 0, DefaultSpeedLimitKPH)
	withZero := TimeSeconds(0, 0, 0.01, 0, 0)
	if withDefault != withZero {
		t.Errorf("TimeSeconds(speed=0) = %v, want fallback to default speed result %v", withZero, withDefault)
	}
}

func TestTimeSecondsScalesInverselyWithSpeed(t *testing.T) {
	slow := TimeSeconds(0, 0, 0.1, 0, 30)
	fast := TimeSeconds(0, 0, 0.1, 0, 60)
	if fast >= slow {
		t.Errorf("doubling speed should roughly halve time: slow=%v fast=%v", slow, fast)
	}
	if math.Abs(slow/2-fast) > 1e-6 {
		t.Errorf("fast = %v, want slow/2 = %v", fast, slow/2)
	}
}
