package model

import "time"

// Pipeline identifies one provider-to-normalized-record path.
type Pipeline string

const (
	PipelineLLM     Pipeline = "llm"
	PipelineRules   Pipeline = "rules"
	PipelineGeoAPI  Pipeline = "geoapi"
	PipelineCapture Pipeline = "capture"
)

// AllPipelines lists every configurable pipeline in execution order.
var AllPipelines = []Pipeline{PipelineLLM, PipelineRules, PipelineGeoAPI, PipelineCapture}

// SplitInput is the caller-supplied address submission.
type SplitInput struct {
	Name        string     `json:"name,omitempty"`
	CountryCode string     `json:"country_code,omitempty"`
	RawAddress  string     `json:"raw_address"`
	Pipelines   []Pipeline `json:"pipelines,omitempty"`
}

// PipelineResult is the outcome of one pipeline for one submission.
type PipelineResult struct {
	Pipeline Pipeline           `json:"pipeline"`
	Address  GeoEnrichedAddress `json:"address"`
	Cost     *CostEstimate      `json:"cost,omitempty"`
	// ElapsedMS is wall-clock pipeline time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// CostEstimate is a rough per-call cost attribution for a pipeline.
type CostEstimate struct {
	InputTokensEst   int     `json:"input_tokens_est,omitempty"`
	OutputTokensEst  int     `json:"output_tokens_est,omitempty"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	Basis            string  `json:"basis"`
}

// Submission is a persisted resolution request with its per-pipeline results.
type Submission struct {
	ID              string                      `json:"submission_id"`
	UserID          string                      `json:"user_id"`
	Input           SplitInput                  `json:"input"`
	Results         map[Pipeline]PipelineResult `json:"results"`
	PreferredMethod string                      `json:"preferred_method,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	ExpiresAt       time.Time                   `json:"expires_at,omitempty"`
}
