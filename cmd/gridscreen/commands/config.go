package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or show configuration",
	}

	cmd.AddCommand(newConfigValidateCommand())
	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a config file against the configuration schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := color.New(color.FgGreen)
			bad := color.New(color.FgRed)

			if noColor {
				ok.DisableColor()
				bad.DisableColor()
			}

			out := cmd.OutOrStdout()

			violations, err := config.ValidateFile(args[0])
			if err != nil && !errors.Is(err, config.ErrSchemaViolation) {
				return err
			}

			if len(violations) == 0 {
				_, writeErr := ok.Fprintf(out, "%s: valid\n", args[0])

				return writeErr
			}

			for _, v := range violations {
				_, writeErr := bad.Fprintf(out, "  %s\n", v)
				if writeErr != nil {
					return writeErr
				}
			}

			return fmt.Errorf("%s: %d problem(s): %w", args[0], len(violations), config.ErrSchemaViolation)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)

			err = enc.Encode(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			return enc.Close()
		},
	}
}
