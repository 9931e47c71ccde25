package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/addrsplit/internal/cost"
	"github.com/parcelworks/addrsplit/internal/geo"
	"github.com/parcelworks/addrsplit/internal/model"
)

type stubAdapter struct {
	name model.Pipeline
	raw  map[string]any
	err  error
	wait bool
}

func (s *stubAdapter) Name() model.Pipeline { return s.name }

func (s *stubAdapter) Resolve(ctx context.Context, _ Request) (map[string]any, error) {
	if s.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.raw, s.err
}

type stubIndex struct {
	postcodes map[string]*model.PlaceRecord
	cities    map[string][]model.PlaceRecord
	calls     int
}

func (s *stubIndex) GetPostcode(_ context.Context, key string) (*model.PlaceRecord, error) {
	s.calls++
	return s.postcodes[key], nil
}

func (s *stubIndex) QueryCities(_ context.Context, key string, _ int) ([]model.PlaceRecord, error) {
	s.calls++
	return s.cities[key], nil
}

func (s *stubIndex) QueryPostcodesByCity(_ context.Context, _ string, _ int) ([]model.PlaceRecord, error) {
	s.calls++
	return nil, nil
}

func zurichIndex() *stubIndex {
	return &stubIndex{
		postcodes: map[string]*model.PlaceRecord{
			"CH#8001": {CountryCode: "CH", Postcode: "8001", PlaceName: "Zürich", Latitude: "47.3769", Longitude: "8.5417"},
		},
	}
}

func TestResolverSiblingIsolation(t *testing.T) {
	// A timed-out extractor must not disturb the rules pipeline running for
	// the same address.
	slow := &stubAdapter{name: model.PipelineLLM, wait: true}
	r := NewResolver(geo.NewEnricher(zurichIndex()), nil, slow, NewRulesAdapter()).
		WithTimeout(20 * time.Millisecond)

	results := r.Resolve(context.Background(), model.SplitInput{
		CountryCode: "CH",
		RawAddress:  "Bahnhofstrasse 1\n8001 Zürich",
	}, "")
	require.Len(t, results, 2)

	failed := results[model.PipelineLLM]
	assert.Equal(t, 0.0, failed.Address.Confidence)
	assert.Contains(t, failed.Address.Warnings, "adapter_failure")
	assert.Equal(t, "CH", failed.Address.CountryCode)
	assert.Equal(t, "Bahnhofstrasse 1\n8001 Zürich", failed.Address.RawAddress)

	ok := results[model.PipelineRules]
	assert.Equal(t, 0.55, ok.Address.Confidence)
	assert.Equal(t, "8001", ok.Address.Postcode)
	assert.Equal(t, model.GeoAccuracyPostcode, ok.Address.GeoAccuracy)
	require.True(t, ok.Address.HasCoordinate())
	assert.InDelta(t, 47.3769, *ok.Address.Latitude, 1e-9)
}

func TestResolverMapsSentinelWarnings(t *testing.T) {
	bad := &stubAdapter{name: model.PipelineCapture, err: ErrNoCandidates}
	r := NewResolver(nil, nil, bad)

	results := r.Resolve(context.Background(), model.SplitInput{RawAddress: "x"}, "")
	res := results[model.PipelineCapture]
	assert.Contains(t, res.Address.Warnings, "capture_no_candidates")
	assert.Equal(t, 0.0, res.Address.Confidence)
}

func TestResolverGeoAPIKeepsProviderCoordinates(t *testing.T) {
	idx := zurichIndex()
	geoapi := &stubAdapter{name: model.PipelineGeoAPI, raw: map[string]any{
		"country_code": "CH",
		"city":         "Zürich",
		"postcode":     "8001",
		"latitude":     47.3778,
		"longitude":    8.5390,
		"geo_accuracy": "street",
		"confidence":   0.8,
	}}
	r := NewResolver(geo.NewEnricher(idx), nil, geoapi)

	results := r.Resolve(context.Background(), model.SplitInput{RawAddress: "Bahnhofstrasse 1"}, "")
	res := results[model.PipelineGeoAPI]

	assert.Equal(t, model.GeoAccuracyStreet, res.Address.GeoAccuracy)
	require.True(t, res.Address.HasCoordinate())
	assert.InDelta(t, 47.3778, *res.Address.Latitude, 1e-9)
	assert.Zero(t, idx.calls, "offline index must not be hit when the provider matched")
}

func TestResolverGeoAPIMissFallsBackToOfflineIndex(t *testing.T) {
	geoapi := &stubAdapter{name: model.PipelineGeoAPI, raw: map[string]any{
		"country_code": "CH",
		"postcode":     "8001",
		"geo_accuracy": "none",
		"confidence":   0.0,
		"warnings":     []string{"no_location_match"},
	}}
	r := NewResolver(geo.NewEnricher(zurichIndex()), nil, geoapi)

	results := r.Resolve(context.Background(), model.SplitInput{RawAddress: "x"}, "")
	res := results[model.PipelineGeoAPI]

	assert.Equal(t, model.GeoAccuracyPostcode, res.Address.GeoAccuracy)
	assert.True(t, res.Address.HasCoordinate())
}

func TestResolverSkipsUnknownPipelines(t *testing.T) {
	r := NewResolver(nil, nil, NewRulesAdapter())

	results := r.Resolve(context.Background(), model.SplitInput{
		RawAddress: "x",
		Pipelines:  []model.Pipeline{model.PipelineRules, "telegraph"},
	}, "")
	require.Len(t, results, 1)
	assert.Contains(t, results, model.PipelineRules)
}

func TestResolverDefaultsToAllConfigured(t *testing.T) {
	r := NewResolver(nil, nil,
		NewRulesAdapter(),
		&stubAdapter{name: model.PipelineCapture, raw: map[string]any{"city": "Bern", "confidence": 0.9}},
	)

	results := r.Resolve(context.Background(), model.SplitInput{RawAddress: "Bern"}, "")
	assert.Len(t, results, 2)
}

func TestResolverCostAttribution(t *testing.T) {
	llmStub := &stubAdapter{name: model.PipelineLLM, raw: map[string]any{"city": "Bern", "confidence": 0.9}}
	r := NewResolver(nil, cost.NewCalculator(cost.DefaultRates()), llmStub, NewRulesAdapter()).
		WithLLMModel("claude-3-5-haiku-latest")

	results := r.Resolve(context.Background(), model.SplitInput{
		CountryCode: "CH",
		RawAddress:  "Bundesplatz 3, 3005 Bern",
	}, "")

	llmRes := results[model.PipelineLLM]
	require.NotNil(t, llmRes.Cost)
	assert.Equal(t, "char_heuristic_v1", llmRes.Cost.Basis)
	assert.Positive(t, llmRes.Cost.InputTokensEst)
	assert.Positive(t, llmRes.Cost.EstimatedCostUSD)

	assert.Nil(t, results[model.PipelineRules].Cost)
}

func TestResolverRecordsElapsedMilliseconds(t *testing.T) {
	r := NewResolver(nil, nil, NewRulesAdapter())
	results := r.Resolve(context.Background(), model.SplitInput{RawAddress: "x"}, "")
	assert.GreaterOrEqual(t, results[model.PipelineRules].ElapsedMS, int64(0))
}

func TestPipelineResultElapsedWireField(t *testing.T) {
	b, err := json.Marshal(model.PipelineResult{
		Pipeline:  model.PipelineRules,
		ElapsedMS: 42,
	})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"elapsed_ms":42`)
}
