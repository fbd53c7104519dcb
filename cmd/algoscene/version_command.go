package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/algoscene/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the algoscene version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "algoscene %s\n", version.Version)
			return nil
		},
	}
}
