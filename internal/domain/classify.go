package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON finds a JSON value in free text: the body of the first
// fenced code block, or the whole text when it opens with { or [. It
// returns nil when nothing parses.
func ExtractJSON(text string) any {
	if text == "" {
		return nil
	}
	var candidate string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	} else {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			candidate = trimmed
		}
	}
	if candidate == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil
	}
	return v
}

// ParseJSON decodes text as a single JSON value, returning nil on failure.
func ParseJSON(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil
	}
	return v
}

// IsItineraryLike reports whether v is an object carrying the keys
// destination, start_date, end_date and itinerary. Value shapes are left to
// DecodeItinerary.
func IsItineraryLike(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"destination", "start_date", "end_date", "itinerary"} {
		if _, ok := obj[key]; !ok {
			return false
		}
	}
	return true
}

// DecodeItinerary converts a generic value already classified as
// itinerary-like into the strict document shape.
func DecodeItinerary(v any) (*Itinerary, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewInvalidDocument("cannot re-encode value", err)
	}
	return ParseItinerary(data)
}

// ParseItinerary strictly decodes a stored document.
func ParseItinerary(data []byte) (*Itinerary, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewInvalidDocument("not a JSON object", err)
	}
	for _, key := range []string{"destination", "description", "start_date", "end_date", "duration_days", "itinerary"} {
		if _, ok := raw[key]; !ok {
			return nil, NewInvalidDocument("missing field "+key, nil)
		}
	}
	var days []map[string]json.RawMessage
	if err := json.Unmarshal(raw["itinerary"], &days); err != nil {
		return nil, NewInvalidDocument("itinerary is not a list of days", err)
	}
	for i, day := range days {
		for _, key := range []string{"date", "day_number", "location", "activities", "transportation", "notes"} {
			if _, ok := day[key]; !ok {
				return nil, NewInvalidDocument(fmt.Sprintf("day %d missing field %s", i+1, key), nil)
			}
		}
	}
	var it Itinerary
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, NewInvalidDocument("unexpected field types", err)
	}
	return &it, nil
}

// StripFencedJSON removes every fenced code block and trims the rest.
func StripFencedJSON(text string) string {
	return strings.TrimSpace(fencedJSON.ReplaceAllString(text, ""))
}
