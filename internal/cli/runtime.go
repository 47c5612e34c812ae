package cli

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/api"
	"careerkit/internal/common"
	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/observability"
	"careerkit/internal/poller"
	"careerkit/internal/session"
	"careerkit/internal/store"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 5 * time.Second

// runtime holds what a command needs to talk to the backend. The API client
// and the selection store are created on first use.
type runtime struct {
	cfg     *config.Config
	logger  *errors.Logger
	session *session.Session
	obs     *observability.ObservabilityManager

	client       *api.Client
	watcher      *session.TokenWatcher
	vaultWatcher *session.VaultWatcher
	store        *store.Store
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}

	obs, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	if addr := obs.MetricsAddr(); addr != "" {
		logger.Info("Serving metrics", "addr", addr, "path", cfg.Observability.Prometheus.Endpoint)
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		session: session.FromConfig(&cfg.Session),
		obs:     obs,
	}, nil
}

// Client returns the backend client, failing early on an expired session
func (rt *runtime) Client() (*api.Client, error) {
	if rt.client != nil {
		return rt.client, nil
	}
	if err := rt.session.Check(time.Now()); err != nil {
		return nil, err
	}
	if rt.session.Guest() {
		rt.logger.Warn("No session token configured; requests are sent as a guest")
	}

	var opts []api.Option
	if m := rt.obs.Metrics(); m != nil {
		opts = append(opts, api.WithRecorder(m))
	}
	rt.client = api.New(&rt.cfg.API, rt.session, rt.logger, opts...)
	rt.watchToken()
	return rt.client, nil
}

// watchToken keeps the session token in step with the token file or the
// Vault secret for long-running commands
func (rt *runtime) watchToken() {
	if sc := rt.cfg.Session; sc.WatchTokenFile && sc.TokenFile != "" {
		w := session.NewTokenWatcher(sc.TokenFile, rt.session, sc.DebounceDelay, rt.logger)
		if err := w.Start(); err != nil {
			rt.logger.Warn("Session token file will not be watched", "file", sc.TokenFile, "error", err)
		} else {
			rt.watcher = w
		}
	}

	vc := rt.cfg.Vault
	if !vc.Enabled || vc.RefreshInterval <= 0 || vc.Secrets.SessionToken == "" {
		return
	}
	client, err := config.NewVaultClient(vc, rt.logger)
	if err != nil || client == nil {
		rt.logger.Warn("Session token will not be refreshed from Vault", "error", err)
		return
	}
	w := session.NewVaultWatcher(client, vc.Secrets.SessionToken, vc.RefreshInterval, rt.session, rt.logger)
	if err := w.Start(); err != nil {
		rt.logger.Warn("Session token will not be refreshed from Vault", "error", err)
		return
	}
	rt.vaultWatcher = w
}

// Store opens the local selection store
func (rt *runtime) Store() (*store.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	st, err := store.Open(rt.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	rt.logger.Debug("Opened selection store", "path", st.Path())
	rt.store = st
	return st, nil
}

// Span starts a command span on the careerkit tracer
func (rt *runtime) Span(ctx context.Context, name string) (context.Context, trace.Span) {
	return rt.obs.Tracer("careerkit.cli").Start(ctx, name)
}

// RecordJob reports the end of a polled job
func (rt *runtime) RecordJob(ctx context.Context, kind string, started time.Time, err error) {
	rt.obs.Metrics().RecordJob(ctx, kind, time.Since(started), err)
}

// Close releases everything the runtime opened. Telemetry is flushed on a
// fresh context since the command's may already be cancelled.
func (rt *runtime) Close() {
	if rt.client != nil {
		rt.logger.Debug("Backend client state", "stats", rt.client.Stats())
	}
	if rt.watcher != nil {
		if err := rt.watcher.Stop(); err != nil {
			rt.logger.Warn("Failed to stop token watcher", "error", err)
		}
	}
	if rt.vaultWatcher != nil {
		if err := rt.vaultWatcher.Stop(); err != nil {
			rt.logger.Warn("Failed to stop Vault token watcher", "error", err)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("Failed to close selection store", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.obs.Shutdown(ctx); err != nil {
		rt.logger.Warn("Failed to flush telemetry", "error", err)
	}
}

// pollOptions builds polling options from the polling config section
func pollOptions[T any](rt *runtime, onProgress func(poller.Status[T])) poller.Options[T] {
	return poller.Options[T]{
		Interval:             rt.cfg.Polling.Interval,
		MaxConsecutiveErrors: rt.cfg.Polling.MaxConsecutiveErrors,
		Timeout:              rt.cfg.Polling.Timeout,
		OnProgress:           onProgress,
		Logger:               rt.logger,
	}
}

// addOutputFlags registers the output flags shared by every command that
// prints a result
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// prepareOutput applies the default format and validates it. It is meant
// for PreRunE.
func prepareOutput(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	format, err := common.ResolveOutputFormat(cc.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return err
	}
	cc.OutputFormat = format
	cc.MaxFileSize = cfg.App.MaxFileSize
	cc.Out = cmd.OutOrStdout()
	return nil
}
