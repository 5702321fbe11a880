package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // config file path; empty uses VUO_CONFIG or the default location
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vuo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vuo",
		Short: "vuo - unidirectional data flow runtime",
		Long:  "Stores, actions and request lifecycles wired through a single dispatch bus.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to config file (TOML)")

	cmd.AddCommand(NewIdentCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))

	return cmd
}

// formatter builds an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// fail reports err through the JSON formatter when --format json is set and
// returns it as an ExitError. Text mode leaves printing to main.
func (o *RootOptions) fail(cmd *cobra.Command, exit int, code, message string, err error) error {
	if o.Format == "json" {
		detail := message
		if err != nil {
			detail = fmt.Sprintf("%s: %v", message, err)
		}
		if outErr := o.formatter(cmd).Error(code, detail, nil); outErr != nil {
			return outErr
		}
	}
	if err == nil {
		return NewExitError(exit, message)
	}
	return WrapExitError(exit, message, err)
}
