package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/99minutos/session-client/internal/app"
	"github.com/99minutos/session-client/internal/infrastructure/health"
)

func (c *cli) newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the auth API and session stores are reachable",
		Long:  `Check the health of every dependency the session client is configured to use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				report := a.Health.Check(ctx)
				if jsonOutput {
					out, err := json.MarshalIndent(report, "", "  ")
					if err != nil {
						return fmt.Errorf("failed to format JSON: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), formatReport(report))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func formatReport(r health.Report) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEPENDENCY\tSTATUS\tERROR")
	for _, d := range r.Dependencies {
		errMsg := d.Error
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Status, errMsg)
	}
	_ = w.Flush()
	fmt.Fprintf(&sb, "\noverall: %s\n", r.Status)
	return sb.String()
}
