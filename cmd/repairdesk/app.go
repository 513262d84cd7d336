package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/repairdesk/repairdesk-search/internal/api"
	"github.com/repairdesk/repairdesk-search/internal/cache"
	"github.com/repairdesk/repairdesk-search/internal/config"
	"github.com/repairdesk/repairdesk-search/internal/lookup"
	"github.com/repairdesk/repairdesk-search/internal/metrics"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/repo"
	"github.com/repairdesk/repairdesk-search/internal/services"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

const (
	kindTicket   = models.KindTicket
	kindPurchase = models.KindPurchase
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	labels  models.Labels
	cache   cache.Provider
	client  *repo.RecordsClient
	policy  lookup.Policy
	closers []io.Closer
}

// newApp loads configuration and wires the record client. quiet routes logs
// away from the terminal when no log file is given, for interactive screens.
func newApp(quiet bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if metricsAddr != "" {
		cfg.Server.MetricsAddress = metricsAddr
	}
	a := &app{cfg: cfg}

	var out io.Writer = os.Stderr
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	case quiet:
		out = io.Discard
	}
	a.logger = utils.NewLoggerTo(out, cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(a.logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.policy, err = lookup.ParsePolicy(cfg.Lookup.Policy)
	if err != nil {
		return nil, err
	}
	a.labels = models.DefaultLabels().WithOverrides(cfg.Labels.Status, cfg.Labels.Payment, cfg.Labels.Condition)

	provider, err := cache.New(cfg.Cache.Backend, cache.ValkeyConfig{
		Addr:         cfg.Cache.Addr,
		Username:     cfg.Cache.Username,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		Prefix:       cfg.Cache.Prefix,
		DialTimeout:  cfg.Cache.DialTimeout,
		ReadTimeout:  cfg.Cache.ReadTimeout,
		WriteTimeout: cfg.Cache.WriteTimeout,
		MaxRetries:   cfg.Cache.MaxRetries,
		TLS:          cfg.Cache.TLS,
	})
	if err != nil {
		a.logger.Warn("lookup cache unavailable, continuing without", slog.String("backend", cfg.Cache.Backend), slog.Any("error", err))
		provider = cache.NoopProvider{}
	}
	a.cache = provider
	a.closers = append(a.closers, provider)

	a.client = repo.NewRecordsClient(repo.ClientConfig{
		BaseURL: cfg.Service.BaseURL,
		APIKey:  cfg.Service.APIKey,
		Paths: repo.Paths{
			Tickets:     cfg.Service.TicketsPath,
			Purchases:   cfg.Service.PurchasesPath,
			Diagnostics: cfg.Service.DiagnosticsPath,
			Customers:   cfg.Service.CustomersPath,
			Devices:     cfg.Service.DevicesPath,
		},
		Timeout:   cfg.Service.Timeout,
		LookupTTL: cfg.Cache.LookupTTL,
		Location:  loc,
	}, provider, a.logger)

	return a, nil
}

func (a *app) session(kind models.RecordKind) *services.SearchSession {
	loc, _ := a.cfg.Location()
	return services.NewSearchSession(a.logger, a.client, a.client, services.SessionOptions{
		TenantID:       a.cfg.Service.TenantID,
		Kind:           kind,
		PageSize:       a.cfg.Search.PageSize,
		SortBy:         a.cfg.Search.SortBy,
		SortDescending: a.cfg.Search.SortDescending,
		InitialYears:   a.cfg.Search.InitialYears,
		ExpandYears:    a.cfg.Search.ExpandYears,
		TextMinLength:  a.cfg.Search.TextMinLength,
		Location:       loc,
		Labels:         a.labels,
	})
}

// searchFunc queries directory. With refresh set, each query's cached result
// is dropped first so the answer comes from the service.
func (a *app) searchFunc(directory models.Directory, refresh bool) lookup.SearchFunc[models.DirectoryEntry] {
	return func(ctx context.Context, query string) ([]models.DirectoryEntry, error) {
		req := models.LookupRequest{
			TenantID:  a.cfg.Service.TenantID,
			Directory: directory,
			Query:     query,
			Limit:     a.cfg.Lookup.Limit,
		}
		if refresh {
			if err := a.client.ForgetLookup(ctx, req); err != nil {
				a.logger.Warn("lookup cache invalidation failed", slog.Any("error", err))
			}
		}
		return a.client.Lookup(ctx, req)
	}
}

// startOps serves /metrics and /healthz from this process while the command
// runs. It does nothing when no metrics address is configured.
func (a *app) startOps() (*api.Server, func(), error) {
	if a.cfg.Server.MetricsAddress == "" {
		return nil, func() {}, nil
	}
	server, err := api.NewServer(a.cfg.Server, prometheus.DefaultGatherer, a.logger, map[string]api.HealthCheck{
		"cache": a.cacheCheck,
	})
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if err := server.Start(); err != nil {
			a.logger.Error("ops server stopped", slog.Any("error", err))
		}
	}()
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
		defer cancel()
		server.Shutdown(ctx)
	}
	return server, stop, nil
}

func (a *app) cacheCheck(ctx context.Context) error {
	_, err := a.cache.Get(ctx, "repairdesk:healthz")
	if err == nil || errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}
