package planner

import (
	"fmt"
	"strings"

	"github.com/soyeahso/wayfarer/internal/agent"
	"github.com/soyeahso/wayfarer/internal/domain"
)

// EmptyReply is shown when no item of a turn rendered any text.
const EmptyReply = "Noted."

// Render turns a run's items into the user-facing reply.
func Render(items []agent.Item) string {
	var lines []string
	for _, it := range items {
		if line := RenderItem(it); line != "" {
			lines = append(lines, line)
		}
	}
	reply := strings.TrimSpace(strings.Join(lines, "\n"))
	if reply == "" {
		return EmptyReply
	}
	return reply
}

// RenderItem derives the display line for a single item, or "" to hide it.
func RenderItem(it agent.Item) string {
	switch it.Kind {
	case agent.ItemMessage:
		return renderMessage(it.Content)
	case agent.ItemToolCall:
		return fmt.Sprintf("%s: Calling a tool", it.Agent)
	case agent.ItemToolOutput:
		v := domain.ParseJSON(it.Content)
		if domain.IsItineraryLike(v) {
			if text, ok := renderItinerary(v); ok {
				return text
			}
			return fmt.Sprintf("%s: Itinerary updated.", it.Agent)
		}
		return fmt.Sprintf("%s: Tool completed.", it.Agent)
	case agent.ItemHandoff:
		return fmt.Sprintf("Handed off from %s to %s", it.Source, it.Target)
	default:
		return ""
	}
}

// renderMessage shows itinerary JSON as formatted text and hides any other
// JSON, keeping prose around fenced blocks.
func renderMessage(text string) string {
	if text == "" {
		return ""
	}
	v := domain.ExtractJSON(text)
	if v == nil {
		return text
	}
	if domain.IsItineraryLike(v) {
		if out, ok := renderItinerary(v); ok {
			return out
		}
		return "Itinerary updated."
	}
	rest := domain.StripFencedJSON(text)
	if domain.ParseJSON(rest) != nil {
		return ""
	}
	return rest
}

func renderItinerary(v any) (string, bool) {
	it, err := domain.DecodeItinerary(v)
	if err != nil {
		return "", false
	}
	return domain.FormatForDisplay(it), true
}
