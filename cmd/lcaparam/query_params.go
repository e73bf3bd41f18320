package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func queryParamsCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "params",
		Short: "List activity parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryParams(cmd, group)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Group to filter")
	return cmd
}

func runQueryParams(cmd *cobra.Command, group string) error {
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

	params, err := db.ListActivityParameters(ctx, group)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(params) == 0 {
		fmt.Fprintln(out, "No parameters found.")
		return nil
	}

	for _, p := range params {
		code := "-"
		if p.Code != nil {
			code = *p.Code
		}
		fmt.Fprintf(out, "%s/%s = %g [%s/%s]", p.Group, p.Name, p.Amount, p.Database, code)
		if p.Formula != nil {
			fmt.Fprintf(out, " formula: %s", *p.Formula)
		}
		if p.UncertaintyType != nil {
			fmt.Fprintf(out, " uncertainty: %d", *p.UncertaintyType)
		}
		fmt.Fprintln(out)
	}
	return nil
}
