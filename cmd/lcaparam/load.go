package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lcaparam/internal/inventory"
)

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <inventory.yaml>",
		Short: "Create databases, activities and exchanges from an inventory file",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	inv, err := inventory.Load(args[0])
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := inventory.Write(ctx, inv, db)
	if err != nil {
		return err
	}
	logger.Info("inventory loaded",
		zap.String("path", args[0]),
		zap.Int("databases", result.Databases),
		zap.Int("activities", result.Activities),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Load complete.")
	fmt.Fprintf(out, "  Databases:  %d\n", result.Databases)
	fmt.Fprintf(out, "  Activities: %d\n", result.Activities)
	fmt.Fprintf(out, "  Exchanges:  %d\n", result.Exchanges)
	return nil
}
