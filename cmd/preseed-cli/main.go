package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type cmdGlobal struct {
	flagURL     string
	flagRetries int
	flagVerbose bool
}

func (c *cmdGlobal) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "preseed-cli"
	cmd.Short = "Render and manage Debian preseed documents"
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVar(&c.flagURL, "url", "http://localhost:8080/api/preseed-composer/v1", "base URL of the preseed-composer API")
	cmd.PersistentFlags().IntVar(&c.flagRetries, "retries", 3, "number of retries on connection failures")
	cmd.PersistentFlags().BoolVarP(&c.flagVerbose, "verbose", "v", false, "log retries and requests")

	// Render.
	renderCmd := cmdRender{global: c}
	cmd.AddCommand(renderCmd.command())

	// Preview.
	previewCmd := cmdPreview{global: c}
	cmd.AddCommand(previewCmd.command())

	// Store.
	storeCmd := cmdStore{global: c}
	cmd.AddCommand(storeCmd.command())

	// Show.
	showCmd := cmdShow{global: c}
	cmd.AddCommand(showCmd.command())

	// Version.
	versionCmd := cmdVersion{}
	cmd.AddCommand(versionCmd.command())

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706.
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Usage() }

	return cmd
}

func main() {
	global := cmdGlobal{}
	if err := global.command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
