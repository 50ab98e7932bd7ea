package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nurpe/fleetwatch/internal/model"
)

// SummarizeStops aggregates closed stops; open stops are ignored.
func SummarizeStops(stops []model.Stop) model.StopStats {
	durations := make([]float64, 0, len(stops))
	for _, s := range stops {
		if s.EndTime == nil || s.Duration == nil {
			continue
		}
		durations = append(durations, float64(*s.Duration))
	}
	if len(durations) == 0 {
		return model.StopStats{}
	}
	return model.StopStats{
		TotalStops:    len(durations),
		TotalDuration: int64(floats.Sum(durations)),
		AvgDuration:   int64(math.Round(stat.Mean(durations, nil))),
		MaxDuration:   int64(floats.Max(durations)),
	}
}
