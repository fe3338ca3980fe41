package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/wayfarer/internal/config"
	"github.com/soyeahso/wayfarer/internal/gateway"
	"github.com/soyeahso/wayfarer/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary and check a running gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wayfarer %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}
			printSummary(out, cfg)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if health, err := checkHealth(ctx, cfg.Gateway); err != nil {
				fmt.Fprintf(out, "Running: no (%v)\n", err)
			} else {
				fmt.Fprintf(out, "Running: yes (%s)\n", health.Status)
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "gateway health check timeout")

	return cmd
}

func printSummary(out io.Writer, cfg config.Config) {
	auth := "none"
	if strings.TrimSpace(cfg.Gateway.Auth.Token) != "" {
		auth = "token"
	}
	fmt.Fprintf(out, "Gateway: %s auth=%s metrics=%v\n", gateway.ListenAddr(cfg.Gateway), auth, cfg.Gateway.MetricsEnabled())

	backend := "file " + cfg.Storage.ItineraryDir
	if dsn := cfg.Storage.DatabaseURL; dsn != "" {
		backend = "database"
		if i := strings.Index(dsn, "://"); i > 0 {
			backend = dsn[:i]
		}
	}
	fmt.Fprintf(out, "Storage: %s\n", backend)

	model := cfg.Model.Provider
	if cfg.Model.Model != "" {
		model += "/" + cfg.Model.Model
	}
	if len(cfg.Model.Fallbacks) > 0 {
		model += " (fallbacks: " + strings.Join(cfg.Model.Fallbacks, ", ") + ")"
	}
	fmt.Fprintf(out, "Model:   %s\n", model)

	lodging := "(not configured)"
	if cfg.Lodging.BaseURL != "" && cfg.Lodging.APIKey != "" {
		lodging = cfg.Lodging.BaseURL
	}
	fmt.Fprintf(out, "Lodging: %s\n", lodging)

	search := "(disabled)"
	if cfg.Search.BraveAPIKey != "" {
		search = "brave country=" + cfg.Search.Country
	}
	fmt.Fprintf(out, "Search:  %s\n", search)
}

// checkHealth asks the configured gateway for its health payload.
func checkHealth(ctx context.Context, gc config.GatewayConfig) (*gateway.HealthResponse, error) {
	addr := gateway.ListenAddr(gc)
	if host, port, err := net.SplitHostPort(addr); err == nil && host == "0.0.0.0" {
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health returned %s", resp.Status)
	}
	var h gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}
