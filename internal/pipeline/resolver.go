package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parcelworks/addrsplit/internal/cost"
	"github.com/parcelworks/addrsplit/internal/geo"
	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/internal/prompt"
	"github.com/parcelworks/addrsplit/internal/schema"
)

// DefaultAdapterTimeout bounds one provider call.
const DefaultAdapterTimeout = 20 * time.Second

// Resolver fans one address submission out across the requested pipelines.
type Resolver struct {
	adapters map[model.Pipeline]Adapter
	enricher *geo.Enricher
	costCalc *cost.Calculator
	timeout  time.Duration
	llmModel string
}

// NewResolver builds a resolver over the given adapters. A nil calculator
// disables cost attribution.
func NewResolver(enricher *geo.Enricher, calc *cost.Calculator, adapters ...Adapter) *Resolver {
	m := make(map[model.Pipeline]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Resolver{
		adapters: m,
		enricher: enricher,
		costCalc: calc,
		timeout:  DefaultAdapterTimeout,
	}
}

// WithTimeout overrides the per-adapter call timeout.
func (r *Resolver) WithTimeout(d time.Duration) *Resolver {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// WithLLMModel records the model id used for cost attribution of the
// generative pipeline.
func (r *Resolver) WithLLMModel(id string) *Resolver {
	r.llmModel = id
	return r
}

// Pipelines lists the pipelines this resolver can run.
func (r *Resolver) Pipelines() []model.Pipeline {
	var out []model.Pipeline
	for _, p := range model.AllPipelines {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Resolve runs each requested pipeline concurrently and returns one result
// per pipeline. A failing adapter yields a zero-confidence record with
// warnings; it never aborts its siblings. Unknown pipeline names are skipped.
func (r *Resolver) Resolve(ctx context.Context, input model.SplitInput, promptTemplate string) map[model.Pipeline]model.PipelineResult {
	requested := input.Pipelines
	if len(requested) == 0 {
		requested = r.Pipelines()
	}

	results := make(map[model.Pipeline]model.PipelineResult, len(requested))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for _, name := range requested {
		adapter, ok := r.adapters[name]
		if !ok {
			zap.L().Warn("resolver: unknown pipeline requested", zap.String("pipeline", string(name)))
			continue
		}

		g.Go(func() error {
			res := r.runOne(gCtx, adapter, input, promptTemplate)
			mu.Lock()
			results[adapter.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runOne executes provider call → normalize → enrich for a single pipeline.
func (r *Resolver) runOne(ctx context.Context, adapter Adapter, input model.SplitInput, promptTemplate string) model.PipelineResult {
	name := adapter.Name()
	log := zap.L().With(zap.String("pipeline", string(name)))
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := Request{
		Name:           input.Name,
		CountryCode:    input.CountryCode,
		RawAddress:     input.RawAddress,
		PromptTemplate: promptTemplate,
		Model:          r.llmModel,
	}

	raw, err := adapter.Resolve(callCtx, req)

	normalized := schema.Normalize(raw, schema.Fallback{
		CountryCode: input.CountryCode,
		RawAddress:  input.RawAddress,
	})

	if err != nil {
		log.Warn("resolver: adapter failed", zap.Error(err))
		normalized.Warnings = append(normalized.Warnings, warningCode(err), err.Error())
		normalized.Confidence = 0
	}

	enriched := r.enrich(ctx, name, raw, err, normalized)

	return model.PipelineResult{
		Pipeline:  name,
		Address:   enriched,
		Cost:      r.estimateCost(name, req, raw, err),
		ElapsedMS: time.Since(start).Milliseconds(),
	}
}

// enrich applies the offline enrichment pass. The geoapi pipeline keeps its
// native provider coordinates and is only enriched when the provider found
// nothing.
func (r *Resolver) enrich(ctx context.Context, name model.Pipeline, raw map[string]any, adapterErr error, normalized model.NormalizedAddress) model.GeoEnrichedAddress {
	if name == model.PipelineGeoAPI && adapterErr == nil {
		if lat, lon, acc, ok := providerCoordinate(raw); ok {
			out := model.GeoEnrichedAddress{NormalizedAddress: normalized, GeoAccuracy: model.GeoAccuracyNone}
			out.SetCoordinate(lat, lon, acc)
			return out
		}
	}

	if r.enricher == nil {
		return model.GeoEnrichedAddress{NormalizedAddress: normalized, GeoAccuracy: model.GeoAccuracyNone}
	}
	return r.enricher.Enrich(ctx, normalized)
}

// providerCoordinate extracts a native coordinate from a raw adapter map.
func providerCoordinate(raw map[string]any) (lat, lon float64, acc model.GeoAccuracy, ok bool) {
	latV, okLat := coordFloat(raw["latitude"])
	lonV, okLon := coordFloat(raw["longitude"])
	if !okLat || !okLon {
		return 0, 0, model.GeoAccuracyNone, false
	}

	acc = model.GeoAccuracyCity
	if s, isStr := raw["geo_accuracy"].(string); isStr {
		switch model.GeoAccuracy(s) {
		case model.GeoAccuracyStreet:
			acc = model.GeoAccuracyStreet
		case model.GeoAccuracyPostcode:
			acc = model.GeoAccuracyPostcode
		case model.GeoAccuracyNone:
			return 0, 0, model.GeoAccuracyNone, false
		}
	}
	return latV, lonV, acc, true
}

func coordFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// estimateCost attributes a rough USD figure to the pipeline call. The
// generative estimate uses the rendered prompt and the size of the parsed
// reply as a character-count proxy.
func (r *Resolver) estimateCost(name model.Pipeline, req Request, raw map[string]any, adapterErr error) *model.CostEstimate {
	if r.costCalc == nil || adapterErr != nil {
		return nil
	}

	switch name {
	case model.PipelineLLM:
		tpl := req.PromptTemplate
		if tpl == "" {
			tpl = prompt.DefaultTemplate
		}
		rendered := prompt.Render(tpl, prompt.Values{
			Name:        req.Name,
			CountryCode: req.CountryCode,
			RawAddress:  req.RawAddress,
		})
		replyProxy, _ := json.Marshal(raw)
		in, out, usd := r.costCalc.LLM(req.Model, rendered, string(replyProxy))
		return &model.CostEstimate{
			InputTokensEst:   in,
			OutputTokensEst:  out,
			EstimatedCostUSD: usd,
			Basis:            "char_heuristic_v1",
		}
	case model.PipelineGeoAPI:
		return &model.CostEstimate{EstimatedCostUSD: r.costCalc.GeoAPI(), Basis: "per_request"}
	case model.PipelineCapture:
		return &model.CostEstimate{EstimatedCostUSD: r.costCalc.Capture(), Basis: "per_lookup"}
	default:
		return nil
	}
}
