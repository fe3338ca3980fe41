package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyContext() TripContext {
	return TripContext{Destination: "Paris", StartDate: "2025-06-01", EndDate: "2025-06-03", ConversationID: "abc"}
}

func TestBuildItineraryDays(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2025-06-01", "2025-06-01", 1},
		{"2025-06-01", "2025-06-03", 3},
		{"2024-02-27", "2024-03-02", 5},
		{"2025-12-30", "2026-01-02", 4},
	}
	for _, tc := range cases {
		t.Run(tc.start+"_"+tc.end, func(t *testing.T) {
			ctx := TripContext{Destination: "Rome", StartDate: tc.start, EndDate: tc.end}
			it, err := BuildItinerary(ctx, Draft{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, it.DurationDays)
			require.Len(t, it.Days, tc.want)
			for i, day := range it.Days {
				assert.Equal(t, i+1, day.DayNumber)
				assert.Equal(t, "Rome", day.Location)
			}
			assert.Equal(t, tc.start, it.Days[0].Date)
			assert.Equal(t, tc.end, it.Days[tc.want-1].Date)
		})
	}
}

func TestBuildItineraryDefaults(t *testing.T) {
	it, err := BuildItinerary(readyContext(), Draft{
		Description:    "Spring in Paris",
		Activities:     [][]string{{"Louvre", "Seine cruise"}},
		Transportation: []string{"Metro"},
		Accommodations: [][]string{{"Hotel A"}},
		Notes:          []string{"arrive early"},
	})
	require.NoError(t, err)

	first := it.Days[0]
	assert.Equal(t, []string{"Louvre", "Seine cruise"}, first.Activities)
	assert.Equal(t, "Metro", first.Transportation)
	assert.Equal(t, []string{"Hotel A"}, first.Accommodation.Names())
	assert.Equal(t, "arrive early", first.Notes)

	last := it.Days[2]
	assert.Equal(t, []string{}, last.Activities)
	assert.Equal(t, "None", last.Transportation)
	assert.Equal(t, AccommodationConfirmed, last.Accommodation.Kind())
	assert.True(t, last.Accommodation.IsEmpty())
	assert.Equal(t, "", last.Notes)

	doc, err := it.Encode()
	require.NoError(t, err)
	assert.Contains(t, doc, `"accommodation": []`)
	assert.Contains(t, doc, `"duration_days": 3`)
}

func TestBuildItineraryMissingContext(t *testing.T) {
	_, err := BuildItinerary(TripContext{Destination: "Paris"}, Draft{})
	require.Error(t, err)
	assert.True(t, Is(err, ErrMissingContext))
	assert.Equal(t, "Missing required context: destination, start_date, or end_date", err.Error())
}

func TestBuildItineraryBadDates(t *testing.T) {
	_, err := BuildItinerary(TripContext{Destination: "Paris", StartDate: "06/01/2025", EndDate: "2025-06-03"}, Draft{})
	assert.True(t, Is(err, ErrInvalidDocument))

	_, err = BuildItinerary(TripContext{Destination: "Paris", StartDate: "2025-06-03", EndDate: "2025-06-01"}, Draft{})
	assert.True(t, Is(err, ErrInvalidDocument))
}

func TestCheckOut(t *testing.T) {
	it, err := BuildItinerary(readyContext(), Draft{})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", it.CheckOut(0))
	assert.Equal(t, "2025-06-04", it.CheckOut(2))
}

func TestAccommodationJSONShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind AccommodationKind
	}{
		{"null", `null`, AccommodationNone},
		{"names", `["Hotel A","Hotel B"]`, AccommodationConfirmed},
		{"empty list", `[]`, AccommodationConfirmed},
		{"provider object", `{"results":[{"hotelId":1}]}`, AccommodationProvider},
		{"provider list", `[{"hotelId":1}]`, AccommodationProvider},
		{"marker", `{"agoda_error":{"reason":"no_city_id","city":"Atlantis"}}`, AccommodationUnresolved},
		{"string", `"Booked by phone"`, AccommodationProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var a Accommodation
			require.NoError(t, json.Unmarshal([]byte(tc.in), &a))
			assert.Equal(t, tc.kind, a.Kind())
			out, err := json.Marshal(a)
			require.NoError(t, err)
			assert.JSONEq(t, tc.in, string(out))
		})
	}
}

func TestAccommodationEmptiness(t *testing.T) {
	assert.True(t, Accommodation{}.IsEmpty())
	assert.True(t, Confirmed().IsEmpty())
	assert.False(t, Confirmed("Hotel").IsEmpty())
	assert.True(t, ProviderResponse(json.RawMessage(`{}`)).IsEmpty())
	assert.False(t, ProviderResponse(json.RawMessage(`{"results":[]}`)).IsEmpty())

	marker, err := Unresolved(map[string]any{"status": 500})
	require.NoError(t, err)
	assert.False(t, marker.IsEmpty())
	assert.True(t, marker.IsErrorMarker())
	assert.JSONEq(t, `{"agoda_error":{"status":500}}`, string(marker.Raw()))
}

func TestHasNoResults(t *testing.T) {
	assert.True(t, HasNoResults(json.RawMessage(`{"results":[]}`)))
	assert.True(t, HasNoResults(json.RawMessage(`{}`)))
	assert.True(t, HasNoResults(json.RawMessage(`{"error":{"id":911,"message":"No search result"}}`)))
	assert.False(t, HasNoResults(json.RawMessage(`{"hotels":[{"id":1}]}`)))
	assert.False(t, HasNoResults(json.RawMessage(`{"results":[],"properties":[{"id":2}]}`)))
	assert.False(t, HasNoResults(json.RawMessage(`[]`)))
}

func TestExtractJSON(t *testing.T) {
	assert.Nil(t, ExtractJSON(""))
	assert.Nil(t, ExtractJSON("just words"))
	assert.Nil(t, ExtractJSON("{not json"))
	assert.Equal(t, map[string]any{"a": 1.0}, ExtractJSON(`  {"a": 1}  `))
	assert.Equal(t, []any{1.0, 2.0}, ExtractJSON("[1,2]"))

	fenced := "Here you go:\n```json\n{\"b\": true}\n```\nEnjoy."
	assert.Equal(t, map[string]any{"b": true}, ExtractJSON(fenced))
	assert.Equal(t, "Here you go:\n\nEnjoy.", StripFencedJSON(fenced))
}

func TestIsItineraryLike(t *testing.T) {
	good := map[string]any{"destination": "x", "start_date": "a", "end_date": "b", "itinerary": []any{}}
	assert.True(t, IsItineraryLike(good))

	missing := map[string]any{"destination": "x", "start_date": "a", "itinerary": []any{}}
	assert.False(t, IsItineraryLike(missing))

	// only key membership is checked; the strict decode rejects the shape
	notList := map[string]any{"destination": "x", "start_date": "a", "end_date": "b", "itinerary": "day 1"}
	assert.True(t, IsItineraryLike(notList))
	_, err := DecodeItinerary(notList)
	assert.True(t, Is(err, ErrInvalidDocument))

	assert.False(t, IsItineraryLike([]any{good}))
}

func TestParseItineraryStrict(t *testing.T) {
	_, err := ParseItinerary([]byte(`{"destination":"x","start_date":"a","end_date":"b","itinerary":[]}`))
	assert.True(t, Is(err, ErrInvalidDocument))

	_, err = ParseItinerary([]byte(`{"destination":"x","description":"","start_date":"a","end_date":"b","duration_days":1,"itinerary":[{"date":"a"}]}`))
	assert.True(t, Is(err, ErrInvalidDocument))
}

func TestFormatForDisplay(t *testing.T) {
	it, err := BuildItinerary(TripContext{Destination: "Lisbon", StartDate: "2025-05-01", EndDate: "2025-05-02"}, Draft{
		Description: "Short break",
		Activities:  [][]string{{"Tram 28", "Alfama"}},
	})
	require.NoError(t, err)
	it.Days[1].Accommodation = ProviderResponse(json.RawMessage(`{"results":[{"id":1},{"id":2}]}`))

	want := "Trip to Lisbon\n" +
		"Description: Short break\n" +
		"Dates: 2025-05-01 to 2025-05-02 (2 days)\n\n" +
		"Itinerary:\n" +
		"Day 1 (2025-05-01):\n" +
		"  Location: Lisbon\n" +
		"  Activities: Tram 28, Alfama\n" +
		"  Transportation: None\n" +
		"  Accommodation: \n" +
		"  Notes: \n\n" +
		"Day 2 (2025-05-02):\n" +
		"  Location: Lisbon\n" +
		"  Activities: \n" +
		"  Transportation: None\n" +
		"  Accommodation: Agoda response with 2 items\n" +
		"  Notes: \n\n"
	assert.Equal(t, want, FormatForDisplay(it))
}

func TestAccommodationSummary(t *testing.T) {
	marker, _ := Unresolved(map[string]any{"reason": "no_city_id"})
	cases := map[string]struct {
		acc  Accommodation
		want string
	}{
		"none":      {Accommodation{}, "None"},
		"names":     {Confirmed("A", "B"), "A, B"},
		"list":      {ProviderResponse(json.RawMessage(`[{"id":1},{"id":2},{"id":3}]`)), "Agoda response list with 3 entries"},
		"marker":    {marker, "Agoda response with 0 items"},
		"string":    {ProviderResponse(json.RawMessage(`"Booked"`)), "Booked"},
		"hotels":    {ProviderResponse(json.RawMessage(`{"hotels":[{}]}`)), "Agoda response with 1 items"},
		"no length": {ProviderResponse(json.RawMessage(`{"results":7}`)), "Agoda response with unknown items"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.acc.Summary())
		})
	}
}

func TestTripContextApply(t *testing.T) {
	var c TripContext
	dest, budget := "Tokyo", "mid"
	people := 3
	set := c.Apply(ContextUpdate{Destination: &dest, Budget: &budget, NumberOfPeople: &people})
	assert.Equal(t, []string{"destination", "budget", "number_of_people"}, set)
	assert.Equal(t, "Tokyo", c.Destination)
	assert.Equal(t, 3, c.Adults())

	other := "Osaka"
	c.Apply(ContextUpdate{Destination: &other})
	assert.Equal(t, "Osaka", c.Destination)
	assert.Equal(t, "mid", c.Budget, "absent fields are preserved")
}

func TestTripContextAdults(t *testing.T) {
	zero, neg, five := 0, -2, 5
	assert.Equal(t, 2, TripContext{}.Adults())
	assert.Equal(t, 2, TripContext{NumberOfPeople: &zero}.Adults())
	assert.Equal(t, 1, TripContext{NumberOfPeople: &neg}.Adults())
	assert.Equal(t, 5, TripContext{NumberOfPeople: &five}.Adults())
}

func TestTripContextClone(t *testing.T) {
	n := 2
	c := TripContext{Destination: "Oslo", NumberOfPeople: &n}
	cp := c.Clone()
	*cp.NumberOfPeople = 4
	assert.Equal(t, 2, *c.NumberOfPeople)
}

func TestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("reading: %w", NewNotFound("c1"))
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrInvalidDocument))
	assert.Equal(t, 404, StatusOf(err))
	assert.Equal(t, ErrNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "No itinerary found for conversation ID: c1")

	assert.Equal(t, 500, StatusOf(errors.New("boom")))
	assert.Equal(t, 502, StatusOf(NewAgentInvocation("booking", errors.New("timeout"))))
}
