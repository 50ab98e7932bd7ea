package analytics

import (
	"testing"

	"github.com/nurpe/fleetwatch/internal/model"
)

func closedStop(durationSec int64) model.Stop {
	end := baseTime
	return model.Stop{StartTime: baseTime, EndTime: &end, Duration: &durationSec}
}

func TestSummarizeStops(t *testing.T) {
	stops := []model.Stop{
		closedStop(120),
		closedStop(300),
		closedStop(181),
		{StartTime: baseTime}, // still open
	}
	got := SummarizeStops(stops)
	want := model.StopStats{TotalStops: 3, TotalDuration: 601, AvgDuration: 200, MaxDuration: 300}
	if got != want {
		t.Fatalf("SummarizeStops = %+v, want %+v", got, want)
	}
}

func TestSummarizeStopsEmpty(t *testing.T) {
	if got := SummarizeStops(nil); got != (model.StopStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}
