package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/soyeahso/wayfarer/internal/agent"
	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/lodging"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/store"
)

// Tool names.
const (
	toolUpdateContext          = "update_context"
	toolCreateItinerary        = "create_itinerary"
	toolUpdateItinerary        = "update_itinerary"
	toolReadItinerary          = "read_itinerary"
	toolPopulateAccommodations = "populate_accommodations"
	toolWebSearch              = "web_search"
)

// Enricher fills itinerary accommodation from live searches.
type Enricher interface {
	Enrich(ctx context.Context, conversationID string, tc domain.TripContext) (string, *lodging.Report, error)
}

// WebSearcher answers free-text web queries with formatted results.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// NewConversationID returns a fresh 16 hex character id.
func NewConversationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Toolset builds the stage tools over shared collaborators. Enricher and
// Search are optional; their tools are omitted when nil.
type Toolset struct {
	Store    store.ItineraryStore
	Enricher Enricher
	Search   WebSearcher
	NewID    func() string
	Log      *logging.Logger
}

// Tools returns every tool the toolset can serve.
func (ts *Toolset) Tools() []agent.Tool {
	tools := []agent.Tool{
		&funcTool{
			name:        toolUpdateContext,
			description: "Update the trip context. Every field is optional; only the fields given are changed.",
			schema:      `{"type":"object","properties":{"destination":{"type":"string"},"start_date":{"type":"string","description":"YYYY-MM-DD"},"end_date":{"type":"string","description":"YYYY-MM-DD"},"budget":{"type":"string"},"travel_style":{"type":"string"},"number_of_people":{"type":"integer"},"conversation_id":{"type":"string"}}}`,
			run:         ts.updateContext,
		},
		&funcTool{
			name:        toolCreateItinerary,
			description: "Create and save the day-by-day itinerary JSON from the trip context. Returns the saved document.",
			schema:      `{"type":"object","properties":{"description":{"type":"string"},"activities_per_day":{"type":"array","items":{"type":"array","items":{"type":"string"}}},"transportation":{"type":"array","items":{"type":"string"}},"accommodations":{"type":"array","items":{"type":"array","items":{"type":"string"}}},"notes":{"type":"array","items":{"type":"string"}},"conversation_id":{"type":"string"}},"required":["description","activities_per_day","transportation","accommodations","notes"]}`,
			run:         ts.createItinerary,
		},
		&funcTool{
			name:        toolUpdateItinerary,
			description: "Replace the saved itinerary with updated_itinerary (the full JSON document). Returns the saved document.",
			schema:      `{"type":"object","properties":{"updated_itinerary":{"type":"string"},"conversation_id":{"type":"string"}},"required":["updated_itinerary"]}`,
			run:         ts.updateItinerary,
		},
		&funcTool{
			name:        toolReadItinerary,
			description: "Read the saved itinerary JSON for the current conversation.",
			schema:      `{"type":"object","properties":{"conversation_id":{"type":"string"}}}`,
			run:         ts.readItinerary,
		},
	}
	if ts.Enricher != nil {
		tools = append(tools, &funcTool{
			name:        toolPopulateAccommodations,
			description: "Search live accommodation for every itinerary day using the trip budget and party size, save it and return the updated itinerary JSON.",
			schema:      `{"type":"object","properties":{"conversation_id":{"type":"string"}}}`,
			run:         ts.populateAccommodations,
		})
	}
	if ts.Search != nil {
		tools = append(tools, &funcTool{
			name:        toolWebSearch,
			description: "Search the web for current destination information.",
			schema:      `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
			run:         ts.webSearch,
		})
	}
	return tools
}

// funcTool adapts a method to agent.Tool.
type funcTool struct {
	name        string
	description string
	schema      string
	run         func(ctx context.Context, tc *domain.TripContext, args map[string]any) (string, error)
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }
func (t *funcTool) InputSchema() string { return t.schema }

func (t *funcTool) Execute(ctx context.Context, tc *domain.TripContext, input string) (string, error) {
	args := map[string]any{}
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("invalid %s input: %w", t.name, err)
		}
	}
	return t.run(ctx, tc, args)
}

// decodeArgs maps tool arguments onto a mapstructure-tagged struct,
// accepting loosely typed model output ("4" for 4, a lone string for a list).
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type conversationArgs struct {
	ConversationID string `mapstructure:"conversation_id"`
}

// conversationFor resolves the target conversation: the argument, then
// the context.
func conversationFor(tc *domain.TripContext, args map[string]any) (string, error) {
	var a conversationArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if id := strings.TrimSpace(a.ConversationID); id != "" {
		return id, nil
	}
	if tc.ConversationID != "" {
		return tc.ConversationID, nil
	}
	return "", domain.NewMissingContext("conversation_id not provided and not set in context", "conversation_id")
}

func (ts *Toolset) log() *logging.Logger {
	if ts.Log == nil {
		return logging.New(nil, "silent")
	}
	return ts.Log
}

func (ts *Toolset) updateContext(_ context.Context, tc *domain.TripContext, args map[string]any) (string, error) {
	var u domain.ContextUpdate
	if err := decodeArgs(args, &u); err != nil {
		return "", err
	}
	set := tc.Apply(u)
	ts.log().Info().Strs("fields", set).Str("conversation", tc.ConversationID).Msg("context updated")
	if len(set) == 0 {
		return "No context fields changed.", nil
	}
	return "Context updated: " + strings.Join(set, ", "), nil
}

type createArgs struct {
	domain.Draft   `mapstructure:",squash"`
	ConversationID string `mapstructure:"conversation_id"`
}

func (ts *Toolset) createItinerary(ctx context.Context, tc *domain.TripContext, args map[string]any) (string, error) {
	var a createArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}

	it, err := domain.BuildItinerary(*tc, a.Draft)
	if err != nil {
		return "", err
	}
	doc, err := it.Encode()
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(a.ConversationID)
	if id == "" {
		id = tc.ConversationID
	}
	if id == "" {
		id = ts.newID()
	}
	tc.ConversationID = id

	if _, err := ts.Store.Write(ctx, id, doc); err != nil {
		return "", err
	}
	ts.log().Info().Str("conversation", id).Int("days", it.DurationDays).Msg("itinerary created")
	return doc, nil
}

func (ts *Toolset) newID() string {
	if ts.NewID != nil {
		return ts.NewID()
	}
	return NewConversationID()
}

func (ts *Toolset) updateItinerary(ctx context.Context, tc *domain.TripContext, args map[string]any) (string, error) {
	id, err := conversationFor(tc, args)
	if err != nil {
		return "", err
	}

	var doc string
	switch v := args["updated_itinerary"].(type) {
	case nil:
		return "", domain.NewInvalidDocument("updated_itinerary is required", nil)
	case string:
		doc = v
	default:
		// models sometimes send the document as an object
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", domain.NewInvalidDocument("updated_itinerary is not JSON", err)
		}
		doc = string(data)
	}

	saved, err := ts.Store.Write(ctx, id, doc)
	if err != nil {
		return "", err
	}
	ts.log().Info().Str("conversation", id).Msg("itinerary updated")
	return saved, nil
}

func (ts *Toolset) readItinerary(ctx context.Context, tc *domain.TripContext, args map[string]any) (string, error) {
	id, err := conversationFor(tc, args)
	if err != nil {
		return "", err
	}
	return ts.Store.Read(ctx, id)
}

func (ts *Toolset) populateAccommodations(ctx context.Context, tc *domain.TripContext, args map[string]any) (string, error) {
	id, err := conversationFor(tc, args)
	if err != nil {
		return "", err
	}
	doc, _, err := ts.Enricher.Enrich(ctx, id, *tc)
	return doc, err
}

type searchArgs struct {
	Query string `mapstructure:"query"`
}

func (ts *Toolset) webSearch(ctx context.Context, _ *domain.TripContext, args map[string]any) (string, error) {
	var a searchArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	return ts.Search.Search(ctx, a.Query)
}
