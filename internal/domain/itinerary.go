package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO date format used throughout itineraries.
const DateLayout = "2006-01-02"

// Itinerary is the persisted trip plan for one conversation.
type Itinerary struct {
	Destination  string `json:"destination"`
	Description  string `json:"description"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	DurationDays int    `json:"duration_days"`
	Days         []Day  `json:"itinerary"`
}

// Day is one entry of an itinerary.
type Day struct {
	Date           string        `json:"date"`
	DayNumber      int           `json:"day_number"`
	Location       string        `json:"location"`
	Activities     []string      `json:"activities"`
	Transportation string        `json:"transportation"`
	Accommodation  Accommodation `json:"accommodation"`
	Notes          string        `json:"notes"`
}

// Draft carries the per-day content a stage supplies when creating an
// itinerary. Slices shorter than the trip fall back to defaults.
type Draft struct {
	Description    string     `mapstructure:"description"`
	Activities     [][]string `mapstructure:"activities_per_day"`
	Transportation []string   `mapstructure:"transportation"`
	Accommodations [][]string `mapstructure:"accommodations"`
	Notes          []string   `mapstructure:"notes"`
}

// BuildItinerary lays out one Day per calendar date between the context's
// start and end dates, inclusive.
func BuildItinerary(tc TripContext, d Draft) (*Itinerary, error) {
	if !tc.ReadyForItinerary() {
		return nil, NewMissingContext("Missing required context: destination, start_date, or end_date", tc.Missing()...)
	}
	start, err := time.Parse(DateLayout, tc.StartDate)
	if err != nil {
		return nil, NewInvalidDocument(fmt.Sprintf("start_date %q is not YYYY-MM-DD", tc.StartDate), err)
	}
	end, err := time.Parse(DateLayout, tc.EndDate)
	if err != nil {
		return nil, NewInvalidDocument(fmt.Sprintf("end_date %q is not YYYY-MM-DD", tc.EndDate), err)
	}
	if end.Before(start) {
		return nil, NewInvalidDocument("end_date is before start_date", nil)
	}

	duration := int(end.Sub(start).Hours()/24) + 1
	days := make([]Day, duration)
	for i := range days {
		day := Day{
			Date:           start.AddDate(0, 0, i).Format(DateLayout),
			DayNumber:      i + 1,
			Location:       tc.Destination,
			Activities:     []string{},
			Transportation: "None",
			Accommodation:  Confirmed(),
		}
		if i < len(d.Activities) && d.Activities[i] != nil {
			day.Activities = d.Activities[i]
		}
		if i < len(d.Transportation) {
			day.Transportation = d.Transportation[i]
		}
		if i < len(d.Accommodations) {
			day.Accommodation = Confirmed(d.Accommodations[i]...)
		}
		if i < len(d.Notes) {
			day.Notes = d.Notes[i]
		}
		days[i] = day
	}

	return &Itinerary{
		Destination:  tc.Destination,
		Description:  d.Description,
		StartDate:    tc.StartDate,
		EndDate:      tc.EndDate,
		DurationDays: duration,
		Days:         days,
	}, nil
}

// Encode renders the itinerary as indented JSON, the stored form.
func (it *Itinerary) Encode() (string, error) {
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CheckOut returns the stay end for day i: the next day's date, or the
// day after check-in for the last day.
func (it *Itinerary) CheckOut(i int) string {
	if i+1 < len(it.Days) {
		return it.Days[i+1].Date
	}
	in, err := time.Parse(DateLayout, it.Days[i].Date)
	if err != nil {
		return it.Days[i].Date
	}
	return in.AddDate(0, 0, 1).Format(DateLayout)
}

// AccommodationKind tags the variant held by an Accommodation.
type AccommodationKind int

const (
	// AccommodationNone is a null or missing value.
	AccommodationNone AccommodationKind = iota
	// AccommodationConfirmed is a list of property names.
	AccommodationConfirmed
	// AccommodationProvider is an opaque search provider payload.
	AccommodationProvider
	// AccommodationUnresolved is an error marker ({"agoda_error": ...}).
	AccommodationUnresolved
)

func (k AccommodationKind) String() string {
	switch k {
	case AccommodationConfirmed:
		return "confirmed"
	case AccommodationProvider:
		return "provider"
	case AccommodationUnresolved:
		return "unresolved"
	default:
		return "none"
	}
}

// Accommodation is the closed union stored in Day.accommodation. It
// serializes to the same JSON shapes it was decoded from.
type Accommodation struct {
	kind  AccommodationKind
	names []string
	raw   json.RawMessage
}

// unresolvedKey wraps every error marker written into a day.
const unresolvedKey = "agoda_error"

// Confirmed builds a list-of-names accommodation.
func Confirmed(names ...string) Accommodation {
	if names == nil {
		names = []string{}
	}
	return Accommodation{kind: AccommodationConfirmed, names: names}
}

// ProviderResponse wraps a raw provider payload stored verbatim.
func ProviderResponse(raw json.RawMessage) Accommodation {
	return Accommodation{kind: AccommodationProvider, raw: bytes.Clone(raw)}
}

// Unresolved builds an error marker {"agoda_error": detail}.
func Unresolved(detail any) (Accommodation, error) {
	raw, err := json.Marshal(map[string]any{unresolvedKey: detail})
	if err != nil {
		return Accommodation{}, err
	}
	return Accommodation{kind: AccommodationUnresolved, raw: raw}, nil
}

// Kind returns the variant tag.
func (a Accommodation) Kind() AccommodationKind { return a.kind }

// Names returns the property names of a Confirmed accommodation.
func (a Accommodation) Names() []string { return a.names }

// Raw returns the JSON payload of Provider and Unresolved variants.
func (a Accommodation) Raw() json.RawMessage { return a.raw }

// IsEmpty reports whether nothing useful is stored: null, an empty list,
// an empty object or an empty string.
func (a Accommodation) IsEmpty() bool {
	switch a.kind {
	case AccommodationNone:
		return true
	case AccommodationConfirmed:
		return len(a.names) == 0
	case AccommodationProvider:
		t := bytes.TrimSpace(a.raw)
		switch string(t) {
		case "", "{}", "[]", `""`, "0", "false":
			return true
		}
		return false
	default:
		return false
	}
}

// IsErrorMarker reports whether the value is an {"agoda_error": ...} marker.
func (a Accommodation) IsErrorMarker() bool { return a.kind == AccommodationUnresolved }

// MarshalJSON implements json.Marshaler.
func (a Accommodation) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AccommodationConfirmed:
		return json.Marshal(a.names)
	case AccommodationProvider, AccommodationUnresolved:
		if len(a.raw) == 0 {
			return []byte("null"), nil
		}
		return a.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON classifies the stored value: a list of strings is
// Confirmed, a single-key {"agoda_error": ...} object is Unresolved, any
// other value is an opaque Provider payload.
func (a *Accommodation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Accommodation{}
		return nil
	}

	var names []string
	if trimmed[0] == '[' && json.Unmarshal(trimmed, &names) == nil {
		*a = Confirmed(names...)
		return nil
	}

	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		if _, ok := obj[unresolvedKey]; ok && len(obj) == 1 {
			*a = Accommodation{kind: AccommodationUnresolved, raw: bytes.Clone(trimmed)}
			return nil
		}
	}

	if !json.Valid(trimmed) {
		return fmt.Errorf("accommodation: invalid JSON")
	}
	*a = ProviderResponse(trimmed)
	return nil
}

// itemKeys are the fields a provider response may carry its results under,
// in lookup order.
var itemKeys = []string{"results", "hotels", "properties"}

// CountItems reports how many entries a provider object holds under the
// first non-empty item field. known is false when the value found has no
// length (a number, say) or raw is not an object at all.
func CountItems(raw json.RawMessage) (n int, known bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return 0, false
	}
	for _, key := range itemKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		var generic any
		if err := json.Unmarshal(v, &generic); err != nil {
			continue
		}
		switch t := generic.(type) {
		case []any:
			if len(t) > 0 {
				return len(t), true
			}
		case map[string]any:
			if len(t) > 0 {
				return len(t), true
			}
		case string:
			if t != "" {
				return len(t), true
			}
		case float64:
			if t != 0 {
				return 0, false
			}
		case bool:
			if t {
				return 0, false
			}
		}
	}
	return 0, true
}

const noResultsErrorID = 911

// HasNoResults reports whether a provider object carries no items or the
// explicit "no results" error (error.id 911).
func HasNoResults(raw json.RawMessage) bool {
	var obj struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	var e struct {
		ID any `json:"id"`
	}
	if len(obj.Error) > 0 && json.Unmarshal(obj.Error, &e) == nil {
		if id, ok := e.ID.(float64); ok && id == noResultsErrorID {
			return true
		}
	}
	n, known := CountItems(raw)
	return known && n == 0
}
