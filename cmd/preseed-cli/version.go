package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osbuild/preseed-composer/internal/common"
)

type cmdVersion struct{}

func (c *cmdVersion) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "version"
	cmd.Short = "Print the version of the client"
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "preseed-cli %s (built %s with %s)\n", common.BuildCommit, common.BuildTime, common.BuildGoVersion)
	}
	return cmd
}
