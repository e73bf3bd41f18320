package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func queryGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List parameter groups",
		Args:  cobra.NoArgs,
		RunE:  runQueryGroups,
	}
}

func runQueryGroups(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	groups, err := db.ListGroups(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No groups found.")
		return nil
	}

	for _, g := range groups {
		state := "stale"
		if g.Fresh {
			state = "fresh"
		}
		fmt.Fprintf(out, "%s (%s, updated %s)\n", g.Name, state, g.Updated.UTC().Format(time.RFC3339))
	}
	return nil
}
