// Package agent is the model-driven runtime behind each planning stage. A
// run starts at one agent, loops over model completions and tool calls,
// follows transfer_to_* handoffs between agents, and reports every step as
// an ordered list of typed items.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/llm"
	"github.com/soyeahso/wayfarer/internal/logging"
)

// DefaultMaxTurns bounds the model calls made by one run.
const DefaultMaxTurns = 10

// ErrMaxTurns is returned when a run does not settle within MaxTurns calls.
var ErrMaxTurns = errors.New("max turns exceeded")

// Agent is one participant in a run.
type Agent struct {
	Name         string
	Instructions string
	Tools        *ToolRegistry
	Handoffs     []string // agent names this agent may transfer to
}

func (a *Agent) toolDefs() []ToolDef {
	if a.Tools == nil {
		return nil
	}
	return a.Tools.Definitions()
}

func (a *Agent) tool(name string) (Tool, bool) {
	if a.Tools == nil {
		return nil, false
	}
	return a.Tools.Get(name)
}

func (a *Agent) canHandoff(target string) bool {
	for _, h := range a.Handoffs {
		if h == target {
			return true
		}
	}
	return false
}

// ItemKind classifies run items.
type ItemKind string

const (
	ItemMessage    ItemKind = "message"
	ItemToolCall   ItemKind = "tool_call"
	ItemToolOutput ItemKind = "tool_output"
	ItemHandoff    ItemKind = "handoff"
)

// Item is one step produced during a run. Agent is the agent that produced
// it; Source and Target are only set on handoffs.
type Item struct {
	Kind    ItemKind `json:"kind"`
	Agent   string   `json:"agent"`
	Content string   `json:"content,omitempty"`
	Tool    string   `json:"tool,omitempty"`
	Input   string   `json:"input,omitempty"`
	Source  string   `json:"source,omitempty"`
	Target  string   `json:"target,omitempty"`
}

// RunResult is the outcome of a run.
type RunResult struct {
	NewItems  []Item        `json:"newItems"`
	LastAgent string        `json:"lastAgent"`
	Usage     llm.Usage     `json:"usage"`
	Duration  time.Duration `json:"duration"`

	input    []llm.Message
	appended []llm.Message
}

// InputList returns the transcript to feed the next run: the original
// input followed by every message the run generated.
func (r *RunResult) InputList() []llm.Message {
	out := make([]llm.Message, 0, len(r.input)+len(r.appended))
	out = append(out, r.input...)
	return append(out, r.appended...)
}

// RunnerConfig configures the runner.
type RunnerConfig struct {
	MaxTurns    int
	MaxTokens   int
	Temperature *float64
}

// Runner drives agents against a model client.
type Runner struct {
	cfg    RunnerConfig
	client llm.Client
	agents map[string]*Agent
	log    *logging.Logger
}

// NewRunner creates a runner. Agents are added with Register.
func NewRunner(cfg RunnerConfig, client llm.Client, log *logging.Logger) *Runner {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return &Runner{
		cfg:    cfg,
		client: client,
		agents: make(map[string]*Agent),
		log:    log.Sub("agent"),
	}
}

// Register adds agents, replacing any with the same name.
func (r *Runner) Register(agents ...*Agent) {
	for _, a := range agents {
		r.agents[a.Name] = a
	}
}

// Agent returns a registered agent by name.
func (r *Runner) Agent(name string) (*Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Run executes agents starting at start until an agent replies without
// calling tools. input is not modified; tools may update tc.
func (r *Runner) Run(ctx context.Context, start string, input []llm.Message, tc *domain.TripContext) (*RunResult, error) {
	begin := time.Now()

	agent, ok := r.agents[start]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", start)
	}

	res := &RunResult{input: append([]llm.Message(nil), input...)}
	transcript := append([]llm.Message(nil), input...)
	push := func(m llm.Message) {
		transcript = append(transcript, m)
		res.appended = append(res.appended, m)
	}

	for turn := 0; turn < r.cfg.MaxTurns; turn++ {
		system := BuildSystemPrompt(PromptConfig{
			AgentName:    agent.Name,
			Instructions: agent.Instructions,
			Tools:        agent.toolDefs(),
			Handoffs:     agent.Handoffs,
			Context:      tc,
		})

		resp, err := r.client.Complete(ctx, llm.CompletionRequest{
			System:      system,
			Messages:    transcript,
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("%s completion: %w", agent.Name, err)
		}
		res.Usage.InputTokens += resp.Usage.InputTokens
		res.Usage.OutputTokens += resp.Usage.OutputTokens

		push(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
		if text := stripToolCalls(resp.Content, r.log); text != "" {
			res.NewItems = append(res.NewItems, Item{Kind: ItemMessage, Agent: agent.Name, Content: text})
		}

		calls := parseToolCalls(resp.Content)
		if len(calls) == 0 {
			res.LastAgent = agent.Name
			res.Duration = time.Since(begin)
			r.log.Debug().
				Str("agent", agent.Name).
				Int("turns", turn+1).
				Int("items", len(res.NewItems)).
				Dur("duration", res.Duration).
				Msg("run complete")
			return res, nil
		}

		r.log.Info().Str("agent", agent.Name).Int("toolCalls", len(calls)).Msg("executing tool calls")

		next, results := r.executeToolCalls(ctx, agent, calls, tc, res)
		push(llm.Message{Role: llm.RoleUser, Content: formatToolResults(results)})
		if next != nil {
			r.log.Info().Str("from", agent.Name).Str("to", next.Name).Msg("handoff")
			agent = next
		}
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxTurns, r.cfg.MaxTurns)
}

// toolCall is a parsed tool invocation from the model response.
type toolCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

func (c toolCall) input() string {
	if len(c.Input) == 0 || string(c.Input) == "null" {
		return "{}"
	}
	return string(c.Input)
}

// toolResult holds the output from executing a tool.
type toolResult struct {
	Tool   string
	Output string
	Err    error
}

// executeToolCalls runs each call in order and records items on res. The
// first valid transfer call selects the next agent; later transfers in the
// same reply are refused.
func (r *Runner) executeToolCalls(ctx context.Context, agent *Agent, calls []toolCall, tc *domain.TripContext, res *RunResult) (*Agent, []toolResult) {
	var (
		next    *Agent
		results []toolResult
	)
	for _, call := range calls {
		if target, ok := handoffTarget(call.Tool); ok {
			tr := toolResult{Tool: call.Tool}
			switch dst, known := r.agents[target]; {
			case !known || !agent.canHandoff(target):
				tr.Err = fmt.Errorf("no handoff from %s to %s", agent.Name, target)
			case next != nil:
				tr.Err = fmt.Errorf("already transferred to %s", next.Name)
			default:
				next = dst
				tr.Output = fmt.Sprintf(`{"assistant": %q}`, dst.Name)
				res.NewItems = append(res.NewItems, Item{
					Kind:   ItemHandoff,
					Agent:  agent.Name,
					Source: agent.Name,
					Target: dst.Name,
				})
			}
			results = append(results, tr)
			continue
		}

		res.NewItems = append(res.NewItems, Item{
			Kind:  ItemToolCall,
			Agent: agent.Name,
			Tool:  call.Tool,
			Input: call.input(),
		})

		tr := toolResult{Tool: call.Tool}
		if tool, ok := agent.tool(call.Tool); ok {
			r.log.Debug().Str("agent", agent.Name).Str("tool", call.Tool).Msg("executing tool")
			tr.Output, tr.Err = tool.Execute(ctx, tc, call.input())
		} else {
			tr.Err = fmt.Errorf("unknown tool: %s", call.Tool)
		}
		if tr.Err != nil {
			r.log.Warn().Str("agent", agent.Name).Str("tool", call.Tool).Err(tr.Err).Msg("tool failed")
		}

		out := tr.Output
		if tr.Err != nil {
			out = "Error: " + tr.Err.Error()
		}
		res.NewItems = append(res.NewItems, Item{
			Kind:    ItemToolOutput,
			Agent:   agent.Name,
			Tool:    call.Tool,
			Content: out,
		})
		results = append(results, tr)
	}
	return next, results
}

// toolCallRe matches ```tool_call\n{...}\n``` blocks in model output.
var toolCallRe = regexp.MustCompile("(?s)```tool_call\\s*\n(\\{.*?\\})\n\\s*```")

// xmlFuncCallRe matches <function_calls>...</function_calls> XML blocks.
var xmlFuncCallRe = regexp.MustCompile(`(?s)<function_calls>.*?</function_calls>`)

// xmlBlockLevelRe matches self-contained XML blocks that models emit for tool use.
var xmlBlockLevelRe = regexp.MustCompile(`(?s)(?:` +
	`<invoke\b[^>]*>.*?</invoke>` +
	`|<tool_call\b[^>]*>.*?</tool_call>` +
	`|<tool_use\b[^>]*>.*?</tool_use>` +
	`)`)

// xmlInlineTagRe matches parameter tags that can appear inline within text.
var xmlInlineTagRe = regexp.MustCompile(`(?s)\s*<parameter\b[^>]*>.*?</parameter>`)

// whitespaceLineRe matches lines containing only horizontal whitespace.
var whitespaceLineRe = regexp.MustCompile(`(?m)^[ \t]+$`)

// blankLineCollapseRe collapses 3+ consecutive newlines to a single blank line.
var blankLineCollapseRe = regexp.MustCompile(`\n{3,}`)

// parseToolCalls extracts tool_call blocks from model output.
func parseToolCalls(text string) []toolCall {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	var calls []toolCall
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		var tc toolCall
		if err := json.Unmarshal([]byte(match[1]), &tc); err != nil {
			continue
		}
		if tc.Tool != "" {
			calls = append(calls, tc)
		}
	}
	return calls
}

// formatToolResults renders tool execution results for the model.
func formatToolResults(results []toolResult) string {
	var b strings.Builder
	b.WriteString("Tool execution results:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "### %s\n", r.Tool)
		if r.Err != nil {
			fmt.Fprintf(&b, "Error: %s\n", r.Err)
		} else {
			b.WriteString(r.Output)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// stripToolCalls removes tool_call blocks and XML tool markup from a reply,
// leaving the surrounding text. Other fenced blocks are kept so JSON
// payloads can still be classified downstream.
func stripToolCalls(text string, log *logging.Logger) string {
	cleaned := toolCallRe.ReplaceAllString(text, "\n\n")

	if log != nil {
		for _, m := range xmlFuncCallRe.FindAllString(cleaned, -1) {
			log.Debug().Str("xml", m).Msg("stripped XML function_calls from model response")
		}
	}
	cleaned = xmlFuncCallRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = xmlBlockLevelRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = xmlInlineTagRe.ReplaceAllString(cleaned, "")

	cleaned = whitespaceLineRe.ReplaceAllString(cleaned, "")
	cleaned = blankLineCollapseRe.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}
