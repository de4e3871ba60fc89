package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/osbuild/preseed-composer/internal/client"
)

func (c *cmdGlobal) client(stderr io.Writer) (*client.Client, error) {
	config := client.DefaultConfig()
	config.RetryMax = c.flagRetries

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if c.flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	config.Logger = logger

	return client.New(c.flagURL, config)
}

// Preview.
type cmdPreview struct {
	global *cmdGlobal

	flagOutput string
}

func (c *cmdPreview) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "preview <config.json|config.toml|->"
	cmd.Short = "Render a preseed document on the server without storing it"
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().StringVarP(&c.flagOutput, "output", "o", "", "write the document to this file instead of stdout")

	cmd.RunE = c.run

	return cmd
}

func (c *cmdPreview) run(cmd *cobra.Command, args []string) error {
	data, err := readInstallConfig(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	cl, err := c.global.client(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	content, err := cl.Preview(cmd.Context(), data)
	if err != nil {
		return err
	}

	return writeOutput(c.flagOutput, cmd.OutOrStdout(), content)
}

// Store.
type cmdStore struct {
	global *cmdGlobal
}

func (c *cmdStore) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "store <config.json|config.toml|->"
	cmd.Short = "Render and store a preseed document, printing its identifier"
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = c.run

	return cmd
}

func (c *cmdStore) run(cmd *cobra.Command, args []string) error {
	data, err := readInstallConfig(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	cl, err := c.global.client(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ref, err := cl.Store(cmd.Context(), data)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", ref.Id, ref.Name, ref.Href)
	return nil
}

// Show.
type cmdShow struct {
	global *cmdGlobal

	flagOutput   string
	flagDownload bool
}

func (c *cmdShow) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "show <identifier>"
	cmd.Short = "Fetch a stored preseed document"
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().StringVarP(&c.flagOutput, "output", "o", "", "write the document to this file instead of stdout")
	cmd.Flags().BoolVarP(&c.flagDownload, "download", "d", false, "write the document to the file name suggested by the server")

	cmd.RunE = c.run

	return cmd
}

func (c *cmdShow) run(cmd *cobra.Command, args []string) error {
	if c.flagDownload && c.flagOutput != "" {
		return fmt.Errorf("--download and --output are mutually exclusive")
	}

	cl, err := c.global.client(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	content, filename, err := cl.Show(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	output := c.flagOutput
	if c.flagDownload {
		if filename == "" {
			filename = args[0] + ".cfg"
		}
		filename = filepath.Base(filename)
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("%s already exists", filename)
		}
		output = filename
		fmt.Fprintf(cmd.ErrOrStderr(), "Saving to %s\n", filename)
	}

	return writeOutput(output, cmd.OutOrStdout(), content)
}
