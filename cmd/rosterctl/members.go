package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pnp-roster/roster"
)

func newMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List the roster members stored in the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, backs, err := loadBackends()
			if err != nil {
				return err
			}
			defer backs.Close()
			ladder, err := c.Ranks.Ladder()
			if err != nil {
				return err
			}
			members, err := roster.NewService(backs, ladder, nil).List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tRANK\tCREATED")
			for _, m := range members {
				_, _ = fmt.Fprintf(
					w, "%d\t%s\t%s\t%s\n", m.ID, m.Username, m.Rank, m.CreatedAt.UTC().Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}
}

func newAuditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, backs, err := loadBackends()
			if err != nil {
				return err
			}
			defer backs.Close()
			entries, err := backs.Audit.List(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "AT\tADMIN\tACTION\tDETAILS")
			for _, e := range entries {
				_, _ = fmt.Fprintf(
					w, "%s\t%s\t%s\t%s\n", e.At.UTC().Format(time.RFC3339), e.Admin, e.Action, e.Details,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show; 0 shows all")
	return cmd
}
