package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/vuo/internal/config"
	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/framework"
	"github.com/roach88/vuo/internal/observability"
	"github.com/roach88/vuo/internal/persist"
	"github.com/roach88/vuo/internal/request"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Dispatch holds JSON payloads posted to the loop at startup.
	Dispatch []string

	// Once settles the startup payloads and their requests, then exits.
	Once bool

	// Transport overrides the HTTP transport (for testing).
	Transport request.Transport
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the runtime",
		Long: `Start the vuo runtime: dispatch bus, task loop, request issuer and the
built-in Session and Pending stores, backed by the configured persistence.

Startup payloads are posted to the loop in order. With --once the command
waits for them and for any requests they start, then exits.

Example:
  vuo run --config ./vuo.toml
  vuo run --once --dispatch '{"type":"Vuo.setAuthToken","value":"secret"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuntime(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Dispatch, "dispatch", nil, "JSON payload to dispatch at startup (repeatable)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "exit after startup payloads settle")

	return cmd
}

func runRuntime(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	logger, err := observability.SetupLogging(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format, opts.Verbose)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "invalid log settings", err)
	}

	payloads, err := parsePayloads(opts.Dispatch)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeInvalidArgs, "invalid --dispatch payload", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	slog.Info("opening persistence", "backend", cfg.Persist.Backend)
	backend, err := persist.Open(ctx, cfg.PersistOptions())
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeBackend, "failed to open persistence backend", err)
	}

	app, err := framework.NewApp(framework.AppConfig{
		BaseURL:   cfg.API.BaseURL,
		AuthToken: cfg.API.AuthToken,
		Timeout:   cfg.API.Timeout,
		Backend:   backend,
		Transport: opts.Transport,
		Logger:    logger,
	})
	if err != nil {
		_ = backend.Close()
		return opts.fail(cmd, ExitFailure, ErrCodeGeneric, "failed to start runtime", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("error closing runtime", "error", closeErr)
		}
	}()

	observability.DefaultMetrics().Observe(app.Bus)
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr)
		defer stop()
	}

	for _, p := range payloads {
		app.Loop.Post(func() {
			if err := app.Bus.Dispatch(p); err != nil {
				slog.Error("startup dispatch failed", "type", p.Type(), "error", err)
			}
		})
	}

	if opts.Once {
		n := app.Settle()
		slog.Info("runtime settled", "tasks", n)
		return nil
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	slog.Info("runtime starting", "base_url", cfg.API.BaseURL, "persist", cfg.Persist.Backend)
	fmt.Fprintln(cmd.OutOrStdout(), "Runtime started. Processing dispatches...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "runtime error", err)
	}

	slog.Info("runtime stopped gracefully")
	return nil
}

// parsePayloads decodes each argument as a JSON object with a "type".
func parsePayloads(args []string) ([]dispatch.Payload, error) {
	payloads := make([]dispatch.Payload, 0, len(args))
	for i, arg := range args {
		v, err := persist.Decode([]byte(arg))
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("payload %d: expected a JSON object", i)
		}
		p := dispatch.Payload(m)
		if p.Type() == "" {
			return nil, fmt.Errorf("payload %d: %w", i, dispatch.ErrMissingType)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// serveMetrics exposes the default Prometheus registry on addr/metrics and
// returns a shutdown func.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}
}
