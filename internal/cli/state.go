package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/vuo/internal/config"
	"github.com/roach88/vuo/internal/persist"
)

// NewStateCommand creates the state command group for inspecting persisted
// cells.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and edit persisted cells",
		Long: `Inspect and edit cell values in the configured persistence backend.

Keys have the form "<namespace>:<cell>", e.g. "Session:authToken".

Example:
  vuo state list
  vuo state list Session:
  vuo state get Session:authToken
  vuo state set Counter:count 3
  vuo state delete Counter:count`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list [prefix]",
		Short:         "List persisted keys",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return withKV(rootOpts, cmd, func(ctx context.Context, kv *persist.KV) error {
				keys, err := kv.Keys(ctx, prefix)
				if err != nil {
					return rootOpts.fail(cmd, ExitFailure, ErrCodeBackend, "failed to list keys", err)
				}
				if keys == nil {
					keys = []string{}
				}
				return rootOpts.formatter(cmd).Success(keys)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "get <key>",
		Short:         "Print a persisted value as JSON",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKV(rootOpts, cmd, func(ctx context.Context, kv *persist.KV) error {
				return getState(ctx, rootOpts, kv, args[0], cmd)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Long: `Store a value. The value is parsed as JSON; anything that is not valid
JSON is stored as a string.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKV(rootOpts, cmd, func(ctx context.Context, kv *persist.KV) error {
				value := parseValue(args[1])
				kv.Set(args[0], value)
				rootOpts.formatter(cmd).VerboseLog("stored %s = %v", args[0], value)
				return getState(ctx, rootOpts, kv, args[0], cmd)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "delete <key>",
		Short:         "Remove a persisted value",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKV(rootOpts, cmd, func(ctx context.Context, kv *persist.KV) error {
				if err := kv.Delete(ctx, args[0]); err != nil {
					return rootOpts.fail(cmd, ExitFailure, ErrCodeBackend, "failed to delete key", err)
				}
				return rootOpts.formatter(cmd).Success(fmt.Sprintf("deleted %s", args[0]))
			})
		},
	})

	return cmd
}

// withKV loads config, opens the configured backend and closes it after fn.
func withKV(opts *RootOptions, cmd *cobra.Command, fn func(context.Context, *persist.KV) error) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := persist.Open(ctx, cfg.PersistOptions())
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeBackend, "failed to open persistence backend", err)
	}
	kv := persist.NewKV(backend)
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			slog.Error("error closing persistence backend", "error", closeErr)
		}
	}()

	return fn(ctx, kv)
}

func getState(ctx context.Context, opts *RootOptions, kv *persist.KV, key string, cmd *cobra.Command) error {
	data, err := kv.Backend().Load(ctx, key)
	if errors.Is(err, persist.ErrNotFound) {
		return opts.fail(cmd, ExitFailure, ErrCodeNotFound, fmt.Sprintf("no value stored for %s", key), nil)
	}
	if err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeBackend, "failed to load key", err)
	}

	value, err := persist.Decode(data)
	if err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeGeneric, "stored value is not valid JSON", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(map[string]any{"key": key, "value": value})
	}
	return opts.formatter(cmd).Success(string(data))
}

// parseValue decodes arg as JSON, falling back to the raw string.
func parseValue(arg string) any {
	if !json.Valid([]byte(arg)) {
		return arg
	}
	v, err := persist.Decode([]byte(arg))
	if err != nil {
		return arg
	}
	return v
}
