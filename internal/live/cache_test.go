package live

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
)

func TestStateHashRoundTrip(t *testing.T) {
	in := model.LivePosition{
		VehicleID: uuid.New(),
		IMEI:      "359633100000001",
		Latitude:  12.9716,
		Longitude: 77.5946,
		Speed:     42.5,
		Ignition:  true,
		Motion:    true,
		State:     model.StateMoving,
		Timestamp: time.Date(2024, 5, 6, 10, 30, 15, 250_000_000, time.UTC),
	}
	out, err := toHash(in).position()
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if *out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *out, in)
	}
}

func TestStateHashRejectsCorruptID(t *testing.T) {
	if _, err := (stateHash{VehicleID: "not-a-uuid"}).position(); err == nil {
		t.Fatalf("expected error for corrupt vehicle id")
	}
}

func TestStateKey(t *testing.T) {
	id := uuid.MustParse("7f8e2a52-1c1b-4b0e-9d53-3b8c1d5f6a10")
	if got := stateKey(id); got != "vehicle:7f8e2a52-1c1b-4b0e-9d53-3b8c1d5f6a10:state" {
		t.Fatalf("unexpected key %q", got)
	}
}
