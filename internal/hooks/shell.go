package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/wayfarer/internal/config"
)

// DefaultShellTimeout bounds a shell hook without a configured timeout.
const DefaultShellTimeout = 10 * time.Second

// configEvents maps HooksConfig yaml keys to event names.
var configEvents = map[string]string{
	"turnStart":      EventTurnStart,
	"turnComplete":   EventTurnComplete,
	"turnFailed":     EventTurnFailed,
	"handoff":        EventHandoff,
	"enrichComplete": EventEnrichComplete,
	"gatewayStart":   EventGatewayStart,
	"gatewayStop":    EventGatewayStop,
}

// ShellHandler runs entry.Command through sh -c with the JSON payload on
// stdin and WAYFARER_HOOK_EVENT set in the environment.
func ShellHandler(entry config.HookEntry) Handler {
	timeout := DefaultShellTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Millisecond
	}
	return func(ctx context.Context, p Payload) error {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
		cmd.Stdin = bytes.NewReader(body)
		cmd.Env = append(os.Environ(), "WAYFARER_HOOK_EVENT="+p.Event)
		// children of sh may hold the output pipe open after a kill
		cmd.WaitDelay = time.Second
		out, err := cmd.CombinedOutput()
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("hook %q timed out after %s", entry.Command, timeout)
		}
		if err != nil {
			return fmt.Errorf("hook %q: %w: %s", entry.Command, err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

// RegisterConfig registers a shell handler for every configured hook entry
// and returns how many were added.
func (m *Manager) RegisterConfig(cfg config.HooksConfig) int {
	n := 0
	for key, entries := range cfg.ByEvent() {
		event, ok := configEvents[key]
		if !ok {
			continue
		}
		for i, entry := range entries {
			if strings.TrimSpace(entry.Command) == "" {
				continue
			}
			m.On(event, fmt.Sprintf("shell:%s[%d]", key, i), ShellHandler(entry))
			n++
		}
	}
	return n
}
