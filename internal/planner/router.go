package planner

import (
	"strings"

	"github.com/soyeahso/wayfarer/internal/agent"
)

// HandoffKind tells how a transition was requested.
type HandoffKind string

const (
	HandoffNone   HandoffKind = ""
	HandoffNative HandoffKind = "native"
	HandoffText   HandoffKind = "text"
)

// textHandoffMarker opens a text-protocol handoff, compared case-insensitively.
const textHandoffMarker = "HANDOFF:"

// Transition is the routing decision for one turn.
type Transition struct {
	From string      // stage active when the turn started
	To   string      // stage active after the turn
	Kind HandoffKind // HandoffNone when To == From by default
	// Hops lists every native handoff of the turn as (from, to) stage pairs.
	Hops [][2]string
}

// ParseTextHandoff reads a text-protocol handoff from a message: after
// trimming, the text opens with HANDOFF: in any case and the rest, trimmed
// and lowercased, is a stage key.
func ParseTextHandoff(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if len(s) < len(textHandoffMarker) || !strings.EqualFold(s[:len(textHandoffMarker)], textHandoffMarker) {
		return "", false
	}
	target := strings.ToLower(strings.TrimSpace(s[len(textHandoffMarker):]))
	if !ValidStage(target) {
		return "", false
	}
	return target, true
}

// Route decides the next active stage from a turn's items. Native handoff
// items and text markers are detected independently; when the turn has any
// native handoff the last one decides and text markers are ignored.
// Otherwise the last message carrying a valid marker decides.
func Route(current string, items []agent.Item) Transition {
	t := Transition{From: current, To: current}

	for _, it := range items {
		if it.Kind != agent.ItemHandoff {
			continue
		}
		from, okFrom := StageOf(it.Source)
		to, okTo := StageOf(it.Target)
		if !okFrom || !okTo {
			continue
		}
		t.Hops = append(t.Hops, [2]string{from, to})
		t.To = to
		t.Kind = HandoffNative
	}
	if t.Kind == HandoffNative {
		return t
	}

	for _, it := range items {
		if it.Kind != agent.ItemMessage {
			continue
		}
		if target, ok := ParseTextHandoff(it.Content); ok {
			t.To = target
			t.Kind = HandoffText
		}
	}
	return t
}
