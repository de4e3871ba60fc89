package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/osbuild/preseed-composer/internal/preseed"
	"github.com/osbuild/preseed-composer/internal/schema"
)

// Render locally, without a server.
type cmdRender struct {
	global *cmdGlobal

	flagOptions string
	flagOutput  string
}

func (c *cmdRender) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "render <config.json|config.toml|->"
	cmd.Short = "Render a preseed document locally"
	cmd.Long = "Validate an install configuration and render the preseed document without contacting a server."
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().StringVar(&c.flagOptions, "options", "", "TOML file overriding the render options (suite, mirrors, crypto passphrase)")
	cmd.Flags().StringVarP(&c.flagOutput, "output", "o", "", "write the document to this file instead of stdout")

	cmd.RunE = c.run

	return cmd
}

func (c *cmdRender) run(cmd *cobra.Command, args []string) error {
	opts := preseed.DefaultOptions()
	if c.flagOptions != "" {
		if _, err := toml.DecodeFile(c.flagOptions, &opts); err != nil {
			return fmt.Errorf("cannot load render options: %w", err)
		}
	}

	data, err := readInstallConfig(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return err
	}

	config, err := validator.Validate(data)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid install configuration:\n%s", formatFieldErrors(verr.Fields))
		}
		return err
	}

	if opts.UsesPlaceholderPassphrase() && config.PartitioningMethod == preseed.PartitioningCrypto {
		fmt.Fprintln(cmd.ErrOrStderr(), "WARNING: the document uses the built-in placeholder crypto passphrase")
	}

	content, err := preseed.NewRenderer(opts).Render(config)
	if err != nil {
		return fmt.Errorf("cannot render preseed: %w", err)
	}

	return writeOutput(c.flagOutput, cmd.OutOrStdout(), content)
}

func formatFieldErrors(fields schema.FieldErrors) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		for _, reason := range fields[name] {
			fmt.Fprintf(&b, "  %s: %s\n", name, reason)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
