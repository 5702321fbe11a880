package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/vuo/internal/ident"
)

// IdentOptions holds flags for the ident command.
type IdentOptions struct {
	*RootOptions
	Seq int64 // last sequence value handed out before the request id
}

// NewIdentCommand creates the ident command.
func NewIdentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IdentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ident <group> <token>...",
		Short: "Print the identifiers derived for an action",
		Long: `Print the routing identifier, constant name, error channel and a sample
request correlation id for an action.

Example:
  vuo ident Users setName
  vuo ident Users users get --seq 41 --format json`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdent(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "sequence value preceding the sample request id")

	return cmd
}

func runIdent(opts *IdentOptions, group string, tokens []string, cmd *cobra.Command) error {
	id := ident.ID(group, tokens...)
	seq := ident.NewSequenceAt(opts.Seq)

	return opts.formatter(cmd).Success(map[string]string{
		"id":          id.String(),
		"const":       ident.ConstName(tokens...),
		"error_id":    id.ErrorID().String(),
		"error_const": ident.ConstName(append(slices.Clone(tokens), ident.ErrorSuffix)...),
		"request_id":  ident.RequestID(seq, group, tokens...),
	})
}
