package main

import "github.com/spf13/cobra"

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the parameter store from the CLI",
	}
	cmd.AddCommand(queryGroupsCmd())
	cmd.AddCommand(queryParamsCmd())
	cmd.AddCommand(queryActivityCmd())
	cmd.AddCommand(querySQLCmd())
	return cmd
}
