package lodging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/store"
)

// CityResolver maps a city name to a provider id.
type CityResolver interface {
	Resolve(name string) (int, bool)
}

// Report summarizes one enrichment run.
type Report struct {
	ConversationID string `json:"conversation_id"`
	Days           int    `json:"days"`
	Found          int    `json:"found"`
	Failed         int    `json:"failed"`
	Unresolved     int    `json:"unresolved"`
	Band           Band   `json:"band"`
	Adults         int    `json:"adults"`
}

// Enricher fills each itinerary day's accommodation from live searches.
type Enricher struct {
	store  store.ItineraryStore
	cities CityResolver
	search Searcher
	log    *logging.Logger
}

// NewEnricher wires the enricher's collaborators.
func NewEnricher(s store.ItineraryStore, cities CityResolver, search Searcher, log *logging.Logger) *Enricher {
	return &Enricher{store: s, cities: cities, search: search, log: log.Sub("lodging")}
}

// Enrich searches accommodation for every day of the conversation's
// itinerary and writes the whole document back once. A failing day keeps
// whatever it already had unless that was empty or an earlier error
// marker. When ctx ends mid-run no further searches are issued, the days
// processed so far are still written, and ctx's error is returned.
// Callers must hold the conversation's lock.
func (e *Enricher) Enrich(ctx context.Context, conversationID string, tc domain.TripContext) (string, *Report, error) {
	if conversationID == "" {
		return "", nil, domain.NewMissingContext("conversation_id not provided and not set in context", "conversation_id")
	}
	if err := e.search.Configured(); err != nil {
		return "", nil, err
	}

	doc, err := e.store.Read(ctx, conversationID)
	if err != nil {
		return "", nil, err
	}

	var top object
	if err := json.Unmarshal([]byte(doc), &top); err != nil {
		return "", nil, domain.NewInvalidDocument("stored itinerary is not an object", err)
	}
	var days []object
	if raw, ok := top.get("itinerary"); ok {
		if err := json.Unmarshal(raw, &days); err != nil {
			return "", nil, domain.NewInvalidDocument("itinerary is not a list of days", err)
		}
	}
	destination := top.str("destination")

	report := &Report{
		ConversationID: conversationID,
		Days:           len(days),
		Band:           RateBand(tc.Budget, len(days)),
		Adults:         tc.Adults(),
	}
	e.log.Info().
		Str("conversation", conversationID).
		Int("days", len(days)).
		Int("adults", report.Adults).
		Int("min_rate", report.Band.Min).
		Int("max_rate", report.Band.Max).
		Msg("enriching accommodations")

	var stopped error
	for i := range days {
		if stopped = ctx.Err(); stopped != nil {
			break
		}
		day := &days[i]

		var existing domain.Accommodation
		if raw, ok := day.get("accommodation"); ok {
			if err := json.Unmarshal(raw, &existing); err != nil {
				existing = domain.ProviderResponse(raw)
			}
		}

		city := day.str("location")
		if city == "" {
			city = destination
		}
		checkIn := day.str("date")
		checkOut := nextDate(days, i, checkIn)
		log := e.log.With("conversation", conversationID)

		cityID, ok := e.cities.Resolve(city)
		if !ok {
			report.Unresolved++
			log.Info().Int("day", i+1).Str("city", city).Msg("no city id; skipping lookup")
			if existing.IsEmpty() {
				marker, err := domain.Unresolved(map[string]any{"reason": "no_city_id", "city": city})
				if err != nil {
					return "", report, err
				}
				setAccommodation(day, marker)
			}
			continue
		}

		log.Info().
			Int("day", i+1).
			Str("date", checkIn).
			Str("city", city).
			Int("city_id", cityID).
			Str("check_out", checkOut).
			Msg("searching accommodations")

		res := e.search.Search(ctx, Query{
			CityID:   cityID,
			CheckIn:  checkIn,
			CheckOut: checkOut,
			Band:     report.Band,
			Adults:   report.Adults,
		})
		switch {
		case res.Payload == nil && ctx.Err() != nil:
			// interrupted mid-search; this day is left as it was
			stopped = ctx.Err()
		case res.Payload != nil:
			report.Found++
			setAccommodation(day, domain.ProviderResponse(res.Payload))
			n, _ := domain.CountItems(res.Payload)
			log.Info().Int("day", i+1).Int("items", n).Msg("stored provider response")
		case res.Err != nil:
			report.Failed++
			if existing.IsEmpty() || existing.IsErrorMarker() {
				marker, err := domain.Unresolved(res.Err)
				if err != nil {
					return "", report, err
				}
				setAccommodation(day, marker)
			}
			log.Warn().Int("day", i+1).Int("status", res.Err.Status).Msg("search failed")
		default:
			report.Failed++
			log.Warn().Int("day", i+1).Msg("search produced no response; keeping accommodation")
		}
		if stopped != nil {
			break
		}
	}

	if days != nil {
		raw, err := json.Marshal(days)
		if err != nil {
			return "", report, fmt.Errorf("encoding days: %w", err)
		}
		top.set("itinerary", raw)
	}
	out, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return "", report, fmt.Errorf("encoding itinerary: %w", err)
	}
	if _, err := e.store.Write(context.WithoutCancel(ctx), conversationID, string(out)); err != nil {
		return "", report, err
	}
	if stopped != nil {
		e.log.Warn().
			Err(stopped).
			Str("conversation", conversationID).
			Int("found", report.Found).
			Msg("enrichment interrupted; saved days processed so far")
		return string(out), report, stopped
	}

	e.log.Info().
		Str("conversation", conversationID).
		Int("found", report.Found).
		Int("failed", report.Failed).
		Int("unresolved", report.Unresolved).
		Msg("itinerary enriched and saved")
	return string(out), report, nil
}

func setAccommodation(day *object, a domain.Accommodation) {
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	day.set("accommodation", raw)
}

// nextDate is the check-out for day i: the following day's date, else the
// day after check-in, else check-in itself when it does not parse.
func nextDate(days []object, i int, checkIn string) string {
	if i+1 < len(days) {
		if d := days[i+1].str("date"); d != "" {
			return d
		}
	}
	t, err := time.Parse(domain.DateLayout, checkIn)
	if err != nil {
		return checkIn
	}
	return t.AddDate(0, 0, 1).Format(domain.DateLayout)
}
