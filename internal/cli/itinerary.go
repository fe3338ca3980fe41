package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/soyeahso/wayfarer/internal/config"
	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/store"
	"github.com/spf13/cobra"
)

func newItineraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "itinerary",
		Aliases: []string{"itin"},
		Short:   "Inspect and maintain stored itineraries",
	}

	cmd.AddCommand(newItineraryGetCmd())
	cmd.AddCommand(newItineraryShowCmd())
	cmd.AddCommand(newItineraryEnrichCmd())
	cmd.AddCommand(newItineraryImportCmd())

	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg config.Config, st store.ItineraryStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, cfg, st)
}

func newItineraryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <conversation-id>",
		Short: "Print the stored itinerary document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ config.Config, st store.ItineraryStore) error {
				doc, err := st.Read(ctx, args[0])
				if err != nil {
					return err
				}
				return printDocument(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func newItineraryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print the stored itinerary as a day-by-day plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ config.Config, st store.ItineraryStore) error {
				doc, err := st.Read(ctx, args[0])
				if err != nil {
					return err
				}
				text, err := domain.FormatDocument(doc)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

func newItineraryEnrichCmd() *cobra.Command {
	var (
		budget string
		people int
	)

	cmd := &cobra.Command{
		Use:   "enrich <conversation-id>",
		Short: "Fill each day's accommodation from the lodging provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg config.Config, st store.ItineraryStore) error {
				tc := domain.TripContext{ConversationID: args[0], Budget: budget}
				if people > 0 {
					tc.NumberOfPeople = &people
				}
				doc, report, err := newEnricher(cfg.Lodging, st).Enrich(ctx, args[0], tc)
				if err != nil {
					return err
				}
				log.Info().
					Int("days", report.Days).
					Int("found", report.Found).
					Int("failed", report.Failed).
					Int("unresolved", report.Unresolved).
					Msg("enrichment complete")
				return printDocument(cmd.OutOrStdout(), doc)
			})
		},
	}

	cmd.Flags().StringVar(&budget, "budget", "", "trip budget used to pick the nightly price band")
	cmd.Flags().IntVar(&people, "people", 0, "number of adults per room")

	return cmd
}

func newItineraryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Copy itinerary_<id>.json files into the configured database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg config.Config, st store.ItineraryStore) error {
				dir := cfg.Storage.ItineraryDir
				if len(args) > 0 {
					dir = args[0]
				}
				if st.Backend() == "file" {
					return fmt.Errorf("storage.databaseUrl is not set; nothing to import into")
				}
				src, err := store.NewFileStore(dir, log)
				if err != nil {
					return err
				}
				res, err := store.ImportFiles(ctx, src, st)
				if res != nil {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Imported %d itineraries into %s\n", len(res.Imported), st.Backend())
					skipped := make([]string, 0, len(res.Skipped))
					for id := range res.Skipped {
						skipped = append(skipped, id)
					}
					sort.Strings(skipped)
					for _, id := range skipped {
						fmt.Fprintf(out, "  skipped %s: %s\n", id, res.Skipped[id])
					}
				}
				return err
			})
		},
	}
}

// printDocument indents JSON documents and prints anything else verbatim.
func printDocument(w io.Writer, doc string) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(doc), "", "  "); err != nil {
		_, err = fmt.Fprintln(w, doc)
		return err
	}
	_, err := fmt.Fprintln(w, buf.String())
	return err
}
