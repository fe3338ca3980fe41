package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/wayfarer/internal/domain"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	AgentName    string
	Instructions string
	Tools        []ToolDef
	Handoffs     []string // target agent names
	Context      *domain.TripContext
	Now          time.Time
}

// BuildSystemPrompt constructs the system prompt for one agent turn.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	fmt.Fprintf(&b, "Current date: %s\n", now.Format(domain.DateLayout))
	if cfg.AgentName != "" {
		fmt.Fprintf(&b, "Agent: %s\n", cfg.AgentName)
	}
	b.WriteString("\n")

	if cfg.Instructions != "" {
		b.WriteString(strings.TrimSpace(cfg.Instructions))
		b.WriteString("\n")
	}

	if cfg.Context != nil {
		if data, err := json.Marshal(cfg.Context); err == nil {
			b.WriteString("\n## Trip context\n\n")
			b.Write(data)
			b.WriteString("\n")
		}
	}

	handoffs := make([]ToolDef, 0, len(cfg.Handoffs))
	for _, name := range cfg.Handoffs {
		handoffs = append(handoffs, handoffToolDef(name))
	}
	tools := append(append([]ToolDef(nil), cfg.Tools...), handoffs...)

	if len(tools) > 0 {
		b.WriteString("\n## Available Tools\n\n")
		b.WriteString("You can call tools by outputting a fenced code block with the language tag `tool_call`:\n\n")
		b.WriteString("```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```\n\n")
		b.WriteString("After a tool is executed, the result will be provided. You may call multiple tools before giving your final response.\n\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "### %s\n%s\n", t.Name, t.Description)
			if t.InputSchema != "" {
				fmt.Fprintf(&b, "Input schema: %s\n", t.InputSchema)
			}
			b.WriteString("\n")
		}
	}

	if len(handoffs) > 0 {
		b.WriteString("To hand the conversation to another agent, call its transfer tool. Only one transfer per reply takes effect.\n")
	}

	return b.String()
}
