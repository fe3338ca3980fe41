package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/soyeahso/wayfarer/internal/planner"
	"github.com/spf13/cobra"
)

// turnRunner is the slice of the orchestrator the chat loop drives.
type turnRunner interface {
	HandleTurn(ctx context.Context, conversationID, message string) (*planner.TurnResult, error)
}

func newChatCmd() *cobra.Command {
	var (
		conversationID string
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Plan a trip interactively from the terminal",
		Long: "Runs the planner in-process. With a message argument a single turn is sent " +
			"and the reply printed; otherwise lines are read from stdin until EOF or /quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// keep the terminal for the conversation
			if logLevel == "" {
				cfg.Logging.Level, cfg.Logging.ConsoleLevel = "warn", "warn"
			}
			closer, err := setupLogging(cfg.Logging)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			s := &chatSession{
				turns:   a.planner,
				id:      conversationID,
				timeout: timeout,
				out:     cmd.OutOrStdout(),
			}
			if len(args) > 0 {
				return s.send(ctx, strings.Join(args, " "))
			}
			return s.loop(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "resume an existing conversation id")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "time limit for one turn (0 means none)")

	return cmd
}

// chatSession carries one terminal conversation across turns.
type chatSession struct {
	turns   turnRunner
	id      string
	stage   string
	timeout time.Duration
	out     io.Writer
}

func (s *chatSession) send(ctx context.Context, message string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.turns.HandleTurn(ctx, s.id, message)
	if err != nil {
		return err
	}
	if s.id == "" {
		fmt.Fprintf(s.out, "[conversation %s]\n", res.ConversationID)
	}
	if s.stage != "" && res.ActiveStage != s.stage {
		fmt.Fprintf(s.out, "[now with %s]\n", res.ActiveAgent)
	}
	s.id, s.stage = res.ConversationID, res.ActiveStage
	fmt.Fprintln(s.out, res.Reply)
	return nil
}

// loop reads one message per line. Turn errors are printed and the
// conversation carries on.
func (s *chatSession) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if err := s.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}
