package web

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// RidesJSON is the /rides.json document.
type RidesJSON struct {
	Totals TotalsJSON `json:"totals"`
	Rides  []RideJSON `json:"rides"`
}

type TotalsJSON struct {
	Rides           int     `json:"rides"`
	Distance        float64 `json:"distance"`
	DurationSeconds int64   `json:"duration_seconds"`
}

type RideJSON struct {
	ID              int64   `json:"id"`
	Start           string  `json:"start"`
	End             string  `json:"end"`
	DurationSeconds int64   `json:"duration_seconds"`
	Device          string  `json:"device"`
	Distance        float64 `json:"distance"`
	Samples         int     `json:"samples"`
	BadSamples      int     `json:"bad_samples"`
	Reason          string  `json:"reason,omitempty"`
}

func formatRides(src RideLister, limit int) ([]byte, error) {
	totals, err := src.Totals()
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	rides, err := src.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}

	out := RidesJSON{
		Totals: TotalsJSON{
			Rides:           totals.Rides,
			Distance:        math.Round(totals.Distance*1000) / 1000,
			DurationSeconds: int64(totals.Duration / time.Second),
		},
		Rides: make([]RideJSON, 0, len(rides)),
	}
	for _, r := range rides {
		out.Rides = append(out.Rides, RideJSON{
			ID:              r.ID,
			Start:           r.Start.UTC().Format(time.RFC3339),
			End:             r.End.UTC().Format(time.RFC3339),
			DurationSeconds: int64(r.Duration() / time.Second),
			Device:          r.Device,
			Distance:        math.Round(r.Distance*1000) / 1000,
			Samples:         r.Samples,
			BadSamples:      r.BadSamples,
			Reason:          r.Reason,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
