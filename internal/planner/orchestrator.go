package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/wayfarer/internal/agent"
	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/hooks"
	"github.com/soyeahso/wayfarer/internal/llm"
	"github.com/soyeahso/wayfarer/internal/lodging"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/metrics"
	"github.com/soyeahso/wayfarer/internal/store"
)

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	ActiveStage    string `json:"active_stage"`
	ActiveAgent    string `json:"current_agent"`
}

// Deps are the collaborators shared by every conversation.
type Deps struct {
	Store    store.ItineraryStore
	Enricher Enricher    // optional
	Search   WebSearcher // optional
	Hooks    *hooks.Manager
	NewID    func() string
}

// conversation is the state of one user's planning session. mu is held
// for the whole of a turn or an enrichment.
type conversation struct {
	mu         sync.Mutex
	id         string
	stage      string
	transcript []llm.Message
	tc         domain.TripContext
}

// Orchestrator runs chat turns against the stage roster, one at a time per
// conversation.
type Orchestrator struct {
	runner *agent.Runner
	deps   Deps
	log    *logging.Logger

	mu    sync.RWMutex
	convs map[string]*conversation
}

// New builds the roster over deps and returns an orchestrator driving it
// with client.
func New(client llm.Client, cfg agent.RunnerConfig, deps Deps, log *logging.Logger) *Orchestrator {
	if deps.NewID == nil {
		deps.NewID = NewConversationID
	}
	runner := agent.NewRunner(cfg, client, log)
	runner.Register(Roster(&Toolset{
		Store:    deps.Store,
		Enricher: deps.Enricher,
		Search:   deps.Search,
		NewID:    deps.NewID,
		Log:      log.Sub("tools"),
	})...)
	return &Orchestrator{
		runner: runner,
		deps:   deps,
		log:    log.Sub("planner"),
		convs:  make(map[string]*conversation),
	}
}

// conversation returns the session for id, creating it when unknown. An
// empty id always creates a session under a new id.
func (o *Orchestrator) conversation(id string) *conversation {
	id = strings.TrimSpace(id)
	if id != "" {
		o.mu.RLock()
		c, ok := o.convs[id]
		o.mu.RUnlock()
		if ok {
			return c
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if id == "" {
		for {
			id = o.deps.NewID()
			if _, taken := o.convs[id]; !taken {
				break
			}
		}
	} else if c, ok := o.convs[id]; ok {
		return c
	}
	c := &conversation{
		id:    id,
		stage: InitialStage,
		tc:    domain.TripContext{ConversationID: id},
	}
	o.convs[id] = c
	o.log.Info().Str("conversation", id).Msg("conversation started")
	return c
}

// HandleTurn appends message to the conversation transcript, runs the
// active stage and returns the rendered reply. A failed run leaves the
// conversation exactly as it was.
func (o *Orchestrator) HandleTurn(ctx context.Context, conversationID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.NewMissingContext("message is required", "message")
	}

	c := o.conversation(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	stage := c.stage
	log := o.log.With("conversation", c.id)
	log.Info().Str("stage", stage).Int("history", len(c.transcript)).Msg("turn started")
	o.deps.Hooks.Emit(ctx, hooks.EventTurnStart, map[string]any{
		"conversation_id": c.id,
		"stage":           stage,
		"message":         message,
	})

	// work on copies so a failed run commits nothing
	tc := c.tc.Clone()
	input := make([]llm.Message, 0, len(c.transcript)+1)
	input = append(input, c.transcript...)
	input = append(input, llm.Message{Role: llm.RoleUser, Content: message})

	res, err := o.runner.Run(ctx, AgentName(stage), input, &tc)
	metrics.TurnDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Turns.WithLabelValues(stage, "error").Inc()
		log.Error().Err(err).Str("stage", stage).Msg("turn failed")
		o.deps.Hooks.Emit(ctx, hooks.EventTurnFailed, map[string]any{
			"conversation_id": c.id,
			"stage":           stage,
			"error":           err.Error(),
		})
		return nil, domain.NewAgentInvocation(AgentName(stage), err)
	}

	reply := Render(res.NewItems)
	t := Route(stage, res.NewItems)

	transcript := res.InputList()
	if t.Kind == HandoffText {
		transcript = append(transcript, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("Conversation ID: %s", c.id),
		})
	}

	c.transcript = transcript
	c.tc = tc
	c.stage = t.To

	metrics.Turns.WithLabelValues(stage, "ok").Inc()
	o.recordHandoffs(ctx, c.id, t)

	log.Info().
		Str("stage", stage).
		Str("next", t.To).
		Int("items", len(res.NewItems)).
		Dur("duration", time.Since(start)).
		Msg("turn complete")
	o.deps.Hooks.Emit(ctx, hooks.EventTurnComplete, map[string]any{
		"conversation_id": c.id,
		"stage":           stage,
		"next_stage":      t.To,
		"reply":           reply,
	})

	return &TurnResult{
		ConversationID: c.id,
		Reply:          reply,
		ActiveStage:    t.To,
		ActiveAgent:    AgentName(t.To),
	}, nil
}

func (o *Orchestrator) recordHandoffs(ctx context.Context, id string, t Transition) {
	hops := t.Hops
	if t.Kind == HandoffText {
		hops = [][2]string{{t.From, t.To}}
	}
	for _, hop := range hops {
		metrics.Handoffs.WithLabelValues(hop[0], hop[1], string(t.Kind)).Inc()
		o.deps.Hooks.Emit(ctx, hooks.EventHandoff, map[string]any{
			"conversation_id": id,
			"from":            hop[0],
			"to":              hop[1],
			"kind":            string(t.Kind),
		})
	}
}

// Itinerary returns the stored document for a conversation.
func (o *Orchestrator) Itinerary(ctx context.Context, conversationID string) (string, error) {
	return o.deps.Store.Read(ctx, conversationID)
}

// Enrich runs accommodation enrichment for a conversation outside a chat
// turn, under the same lock as its turns. The conversation's trip context
// supplies budget and party size when the conversation is known.
func (o *Orchestrator) Enrich(ctx context.Context, conversationID string) (string, *lodging.Report, error) {
	if o.deps.Enricher == nil {
		return "", nil, domain.NewMisconfiguration("accommodation search is not configured")
	}
	if strings.TrimSpace(conversationID) == "" {
		return "", nil, domain.NewMissingContext("conversation_id not provided and not set in context", "conversation_id")
	}

	c := o.conversation(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, report, err := o.deps.Enricher.Enrich(ctx, c.id, c.tc.Clone())
	if err != nil {
		return "", nil, err
	}
	// shell hooks can be slow; they must not hold the conversation lock
	o.deps.Hooks.EmitAsync(context.WithoutCancel(ctx), hooks.EventEnrichComplete, map[string]any{
		"conversation_id": c.id,
		"report":          report,
	})
	return doc, report, nil
}

// State is a snapshot of a conversation for inspection.
type State struct {
	ConversationID string             `json:"conversation_id"`
	Stage          string             `json:"stage"`
	Context        domain.TripContext `json:"context"`
	Transcript     []llm.Message      `json:"transcript"`
}

// State returns a snapshot of a known conversation, waiting for any turn
// in progress to finish.
func (o *Orchestrator) State(conversationID string) (*State, bool) {
	o.mu.RLock()
	c, ok := o.convs[conversationID]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &State{
		ConversationID: c.id,
		Stage:          c.stage,
		Context:        c.tc.Clone(),
		Transcript:     append([]llm.Message(nil), c.transcript...),
	}, true
}

// Conversations returns the number of known conversations.
func (o *Orchestrator) Conversations() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.convs)
}
