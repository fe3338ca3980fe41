package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForDisplay renders an itinerary as plain text for chat replies.
func FormatForDisplay(it *Itinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trip to %s\n", it.Destination)
	fmt.Fprintf(&b, "Description: %s\n", it.Description)
	fmt.Fprintf(&b, "Dates: %s to %s (%d days)\n\n", it.StartDate, it.EndDate, it.DurationDays)
	b.WriteString("Itinerary:\n")
	for _, day := range it.Days {
		fmt.Fprintf(&b, "Day %d (%s):\n", day.DayNumber, day.Date)
		fmt.Fprintf(&b, "  Location: %s\n", day.Location)
		fmt.Fprintf(&b, "  Activities: %s\n", strings.Join(day.Activities, ", "))
		fmt.Fprintf(&b, "  Transportation: %s\n", day.Transportation)
		fmt.Fprintf(&b, "  Accommodation: %s\n", day.Accommodation.Summary())
		fmt.Fprintf(&b, "  Notes: %s\n\n", day.Notes)
	}
	return b.String()
}

// FormatDocument parses stored document text and renders it.
func FormatDocument(doc string) (string, error) {
	it, err := ParseItinerary([]byte(doc))
	if err != nil {
		return "", err
	}
	return FormatForDisplay(it), nil
}

// Summary is the one-line description of an accommodation used in
// display output.
func (a Accommodation) Summary() string {
	switch a.kind {
	case AccommodationNone:
		return "None"
	case AccommodationConfirmed:
		return strings.Join(a.names, ", ")
	}

	raw := bytes.TrimSpace(a.raw)
	if len(raw) == 0 {
		return "None"
	}
	switch raw[0] {
	case '{':
		if n, known := CountItems(raw); known {
			return fmt.Sprintf("Agoda response with %d items", n)
		}
		return "Agoda response with unknown items"
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err == nil {
			return fmt.Sprintf("Agoda response list with %d entries", len(entries))
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
