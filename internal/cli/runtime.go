package cli

import (
	"context"
	"fmt"
	"time"

	"databank/internal/api"
	"databank/internal/auth"
	"databank/internal/config"
	"databank/internal/databank"
	"databank/internal/errors"
	"databank/internal/observability"

	"github.com/spf13/cobra"
)

// runtime bundles the wired client stack one command invocation needs. Every
// command builds it the same way so the bearer token, the 401 handling and
// the TLS settings behave identically everywhere.
type runtime struct {
	cfg      *config.Config
	logger   *errors.Logger
	tokens   *api.FileTokenStore
	bus      *api.InvalidationBus
	client   *api.Client
	bank     *databank.Databank
	analysis *databank.Analysis

	watcher *api.TokenWatcher
	vault   *config.VaultClient
	obs     *observability.ObservabilityManager
	metrics *observability.Metrics
}

// newRuntime wires the client stack from configuration.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}

	vault, err := config.NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if err := cfg.ResolveSecrets(vault); err != nil {
		return nil, err
	}

	obs, err := observability.NewObservabilityManager(
		observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	tokens, err := api.NewFileTokenStore(cfg.Backend.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := cfg.BuildClientTLSConfig()
	if err != nil {
		return nil, err
	}

	bus := api.NewInvalidationBus()
	client, err := api.NewClient(api.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		UserAgent:  cfg.Backend.UserAgent,
		TLS:        tlsConfig,
		Instrument: cfg.Observability.Enabled,
	}, tokens, bus, logger)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		tokens:   tokens,
		bus:      bus,
		client:   client,
		bank:     databank.New(client, logger),
		analysis: databank.NewAnalysis(client, cfg.Analysis, logger),
		vault:    vault,
		obs:      obs,
		metrics:  obs.GetMetrics(),
	}
	rt.analysis.OnRateLimitWait = func(ctx context.Context) {
		rt.metrics.RecordBusinessMetric(ctx, "rate_limit_wait", true)
	}

	if cfg.Backend.WatchCredentials {
		onReload := func() {
			rt.metrics.RecordBusinessMetric(context.Background(), "token_reload", true)
		}
		rt.watcher = api.NewTokenWatcher(tokens, time.Second, onReload, logger)
		if err := rt.watcher.Start(); err != nil {
			// A broken watcher degrades to reading the token at startup only.
			logger.Warn("Credentials watcher failed to start", "error", err.Error())
			rt.watcher = nil
		}
	}

	return rt, nil
}

// session builds the auth session. The identity provider is only constructed
// here because it requires the provider API key, which commands that never
// touch auth should not demand. The session watches the invalidation bus for
// the lifetime of the command, and a missing bearer token is restored through
// the persisted provider refresh token when one is held.
func (rt *runtime) session(ctx context.Context) (*auth.Session, error) {
	provider, err := auth.NewRESTProvider(rt.cfg.Auth, rt.logger)
	if err != nil {
		return nil, err
	}
	session := auth.NewSession(provider, rt.client, rt.tokens, rt.bus, rt.logger)
	go session.WatchInvalidation(ctx)

	if rt.tokens.Get() == "" && rt.tokens.RefreshToken() != "" {
		if err := session.Reconcile(ctx); err != nil {
			rt.logger.Debug("Session restore failed, sign-in required",
				"error", err.Error())
		} else {
			rt.logger.Info("Session restored from the provider refresh token")
		}
	}
	return session, nil
}

// close releases background resources and flushes pending telemetry.
func (rt *runtime) close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if rt.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.obs.Shutdown(ctx); err != nil {
			rt.logger.Warn("Observability shutdown failed", "error", err.Error())
		}
	}
}
