package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lcaparam/internal/store"
)

func queryActivityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activity <database> <code>",
		Short: "Show an activity and its exchanges",
		Args:  cobra.ExactArgs(2),
		RunE:  runQueryActivity,
	}
}

func runQueryActivity(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	activity, err := db.GetActivity(ctx, args[0], args[1])
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(out, "No activity found for %s/%s.\n", args[0], args[1])
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Key: %s\n", activity.Key())
	fmt.Fprintf(out, "Name: %s\n", activity.Name)
	if activity.Location != "" {
		fmt.Fprintf(out, "Location: %s\n", activity.Location)
	}
	if activity.Unit != "" {
		fmt.Fprintf(out, "Unit: %s\n", activity.Unit)
	}

	if len(activity.Exchanges) == 0 {
		return nil
	}

	fmt.Fprintln(out, "Exchanges:")
	for _, e := range activity.Exchanges {
		input := store.ActivityKey{Database: e.InputDatabase, Code: e.InputCode}
		fmt.Fprintf(out, "  %s %s %g", e.Type, input, e.Amount)
		if e.Formula != nil {
			fmt.Fprintf(out, " = %s [%s]", *e.Formula, e.Group)
		}
		if e.OriginalAmount != nil {
			fmt.Fprintf(out, " (original %g)", *e.OriginalAmount)
		}
		fmt.Fprintln(out)
	}
	return nil
}
