package agent

import "strings"

// handoffPrefix names the synthetic transfer tools offered to an agent for
// each of its handoff targets.
const handoffPrefix = "transfer_to_"

// HandoffToolName returns the transfer tool name for a target agent.
func HandoffToolName(target string) string {
	return handoffPrefix + target
}

// handoffTarget returns the target agent of a transfer tool name.
func handoffTarget(tool string) (string, bool) {
	if !strings.HasPrefix(tool, handoffPrefix) {
		return "", false
	}
	target := strings.TrimPrefix(tool, handoffPrefix)
	return target, target != ""
}

func handoffToolDef(target string) ToolDef {
	return ToolDef{
		Name:        HandoffToolName(target),
		Description: "Hand off to the " + target + " to continue the conversation.",
		InputSchema: `{"type":"object","properties":{}}`,
	}
}
