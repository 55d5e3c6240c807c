package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the --config file",
	Long: `Writes the configuration effpred would run with (defaults, environment
overrides and --log-level applied) to the file named by --config, so it can be
edited from there. An existing file is kept unless --force is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := rootFlags.configPath
	if _, err := os.Stat(path); err == nil && !initFlags.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
	return nil
}
