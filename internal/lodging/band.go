package lodging

import (
	"math"
	"strconv"
	"strings"
)

// Band is an inclusive nightly price range in the search currency.
type Band struct {
	Min int `json:"minimum"`
	Max int `json:"maximum"`
}

// DefaultBand applies when the budget is absent or unreadable.
var DefaultBand = Band{Min: 20, Max: 500}

// totalBudgetThreshold separates a nightly target from a whole-trip budget.
const totalBudgetThreshold = 500

var categoryBands = map[string]Band{
	"budget":    {20, 80},
	"cheap":     {20, 80},
	"low":       {20, 80},
	"mid":       {80, 200},
	"mid-range": {80, 200},
	"medium":    {80, 200},
	"luxury":    {200, 800},
	"high":      {200, 800},
	"premium":   {200, 800},
}

// RateBand derives the nightly price band from a free-text budget. A
// number up to 500 is a nightly target; above that it is a total for the
// trip, spread over nights (the itinerary's day count, at least 1).
func RateBand(budget string, nights int) Band {
	b := strings.ToLower(strings.TrimSpace(budget))
	if b == "" {
		return DefaultBand
	}
	if band, ok := categoryBands[b]; ok {
		return band
	}

	v, err := strconv.ParseFloat(b, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultBand
	}

	if v > totalBudgetThreshold {
		base := v / float64(max(1, nights))
		lo := max(20, int(base*0.5))
		return Band{Min: lo, Max: max(lo+20, int(base*1.5))}
	}

	target := float64(int(v))
	return Band{Min: max(20, int(target*0.5)), Max: max(40, int(target*1.25))}
}
