package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/cost"
	"github.com/parcelworks/addrsplit/internal/geo"
	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/internal/pipeline"
	"github.com/parcelworks/addrsplit/internal/store"
	"github.com/parcelworks/addrsplit/pkg/capture"
	"github.com/parcelworks/addrsplit/pkg/llm"
	"github.com/parcelworks/addrsplit/pkg/places"
)

// env bundles the long-lived collaborators a command needs.
type env struct {
	store    store.Store
	index    *geo.SQLiteIndex
	resolver *pipeline.Resolver
}

func (e *env) Close() {
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			zap.L().Warn("close index", zap.Error(err))
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initEnv opens the store and offline index and assembles the resolver with
// the configured pipeline adapters.
func initEnv(ctx context.Context) (*env, error) {
	e := &env{}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	e.store = st

	idx, err := geo.NewSQLiteIndex(cfg.Index.Path)
	if err != nil {
		e.Close()
		return nil, eris.Wrap(err, "open index")
	}
	if err := idx.Migrate(ctx); err != nil {
		e.Close()
		return nil, eris.Wrap(err, "migrate index")
	}
	e.index = idx

	enricher := geo.NewEnricher(idx).WithCandidateLimit(cfg.Resolver.CandidateLimit)

	adapters, err := buildAdapters()
	if err != nil {
		e.Close()
		return nil, err
	}

	e.resolver = pipeline.NewResolver(enricher, cost.NewCalculator(cfg.Pricing), adapters...).
		WithTimeout(time.Duration(cfg.Resolver.TimeoutSecs) * time.Second).
		WithLLMModel(cfg.LLM.Model)

	return e, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	retention := time.Duration(cfg.Resolver.RetentionHours) * time.Hour

	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, eris.Wrap(err, "open postgres store")
		}
		st = st.WithRetention(retention)
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, eris.Wrap(err, "migrate postgres store")
		}
		return st, nil
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite store")
		}
		st = st.WithRetention(retention)
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, eris.Wrap(err, "migrate sqlite store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildAdapters creates one adapter per configured pipeline. Pipelines whose
// provider is not configured are skipped with a warning rather than failing
// startup: the rules pipeline always works offline.
func buildAdapters() ([]pipeline.Adapter, error) {
	var adapters []pipeline.Adapter

	for _, name := range cfg.Resolver.Pipelines {
		switch model.Pipeline(name) {
		case model.PipelineRules:
			adapters = append(adapters, pipeline.NewRulesAdapter())

		case model.PipelineLLM:
			if cfg.LLM.Key == "" {
				zap.L().Warn("llm pipeline disabled: no api key")
				continue
			}
			client, err := llm.NewClient(llm.Config{
				Provider:  cfg.LLM.Provider,
				Model:     cfg.LLM.Model,
				APIKey:    cfg.LLM.Key,
				BaseURL:   cfg.LLM.BaseURL,
				MaxTokens: cfg.LLM.MaxTokens,
			})
			if err != nil {
				return nil, eris.Wrap(err, "llm client")
			}
			adapters = append(adapters, pipeline.NewLLMAdapter(client))

		case model.PipelineGeoAPI:
			if cfg.Places.BaseURL == "" {
				zap.L().Warn("geoapi pipeline disabled: no base url")
				continue
			}
			opts := []places.Option{places.WithRateLimit(cfg.Places.RateLimit)}
			if cfg.Places.CacheTTLSecs > 0 {
				opts = append(opts, places.WithCacheTTL(time.Duration(cfg.Places.CacheTTLSecs)*time.Second))
			}
			client := places.NewClient(cfg.Places.BaseURL, cfg.Places.IndexName, cfg.Places.Key, opts...)
			adapters = append(adapters, pipeline.NewGeoAPIAdapter(client))

		case model.PipelineCapture:
			if cfg.Capture.Key == "" {
				zap.L().Warn("capture pipeline disabled: no api key")
				continue
			}
			client := capture.NewClient(cfg.Capture.BaseURL, cfg.Capture.Key,
				capture.WithRateLimit(cfg.Capture.RateLimit))
			adapters = append(adapters, pipeline.NewCaptureAdapter(client))

		default:
			return nil, eris.Errorf("unknown pipeline %q", name)
		}
	}

	if len(adapters) == 0 {
		return nil, eris.New("no pipelines configured")
	}
	return adapters, nil
}
