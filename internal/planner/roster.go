// Package planner wires the five trip-planning stages together: the agent
// roster and its handoff graph, the stage tools, the text handoff router,
// reply rendering and the per-conversation turn orchestrator.
package planner

import (
	"strings"

	"github.com/soyeahso/wayfarer/internal/agent"
)

// Stage keys.
const (
	StagePreferences = "user_preferences"
	StageResearch    = "destination_research"
	StageItinerary   = "itinerary"
	StageBooking     = "booking"
	StageSummary     = "summary"
)

// InitialStage is where every new conversation starts.
const InitialStage = StagePreferences

// Stages lists the stage keys in pipeline order.
var Stages = []string{StagePreferences, StageResearch, StageItinerary, StageBooking, StageSummary}

const agentSuffix = "_agent"

// AgentName returns the runtime agent name of a stage.
func AgentName(stage string) string { return stage + agentSuffix }

// StageOf maps an agent name back to its stage key.
func StageOf(agentName string) (string, bool) {
	stage, ok := strings.CutSuffix(agentName, agentSuffix)
	if !ok || !ValidStage(stage) {
		return "", false
	}
	return stage, true
}

// ValidStage reports whether key names one of the five stages.
func ValidStage(key string) bool {
	for _, s := range Stages {
		if s == key {
			return true
		}
	}
	return false
}

// handoffGraph holds the native transfers each stage may make. Summary has
// none; it returns to earlier stages through the text protocol only.
var handoffGraph = map[string][]string{
	StagePreferences: {StageResearch},
	StageResearch:    {StageItinerary},
	StageItinerary:   {StageBooking, StageSummary},
	StageBooking:     {StageSummary},
	StageSummary:     nil,
}

// stageTools names the tools each stage is offered.
var stageTools = map[string][]string{
	StagePreferences: {toolUpdateContext},
	StageResearch:    {toolWebSearch},
	StageItinerary:   {toolCreateItinerary, toolUpdateItinerary, toolReadItinerary, toolPopulateAccommodations},
	StageBooking:     {toolReadItinerary, toolUpdateItinerary, toolPopulateAccommodations},
	StageSummary:     {toolReadItinerary, toolUpdateItinerary, toolUpdateContext, toolPopulateAccommodations},
}

var instructions = map[string]string{
	StagePreferences: `You are the first agent. Collect the user's trip preferences: destination,
start and end dates (YYYY-MM-DD), number of people, budget and travel style.
Record them with update_context as soon as you learn them; partial updates are fine.
Once destination and both dates are known, hand off to destination_research_agent.`,

	StageResearch: `You are the destination research agent. Research the destination based on the
user's preferences: activities, attractions, transportation and areas to stay.
Use web_search when you need current information. Then hand off to itinerary_agent.
Locations must be city names, not country names.`,

	StageItinerary: `You are the itinerary agent. Build a day-by-day itinerary from the trip context
and the research so far using create_itinerary. Locations must be city names,
not country names. After creating or changing the itinerary, call
populate_accommodations to fill in live accommodation options, and save any
edits with update_itinerary. Hand off to booking_agent for booking changes or
to summary_agent when the plan is final.`,

	StageBooking: `You are the booking agent. Review the itinerary with the user and apply the
changes they ask for. Read it with read_itinerary, save edits with
update_itinerary and refresh accommodation with populate_accommodations.
Locations must be city names, not country names. Then hand off to summary_agent.`,

	StageSummary: `You are the summary agent. Give a clear summary of the itinerary: destination,
dates, activities, transportation, accommodation and notes. Output formatted text.

If the user asks for modifications, do NOT call a transfer tool. Instead reply
with a single line:
    HANDOFF: <target>
where <target> is one of: user_preferences, destination_research, itinerary, booking.
After the HANDOFF line, stop and wait.`,
}

// Roster builds one agent per stage, offering each the tools from ts it
// is entitled to. Tools missing from ts are left out.
func Roster(ts *Toolset) []*agent.Agent {
	available := make(map[string]agent.Tool)
	for _, t := range ts.Tools() {
		available[t.Name()] = t
	}

	agents := make([]*agent.Agent, 0, len(Stages))
	for _, stage := range Stages {
		tools := agent.NewToolRegistry()
		for _, name := range stageTools[stage] {
			if t, ok := available[name]; ok {
				tools.Register(t)
			}
		}
		var handoffs []string
		for _, target := range handoffGraph[stage] {
			handoffs = append(handoffs, AgentName(target))
		}
		agents = append(agents, &agent.Agent{
			Name:         AgentName(stage),
			Instructions: instructions[stage],
			Tools:        tools,
			Handoffs:     handoffs,
		})
	}
	return agents
}
