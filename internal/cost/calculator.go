// Package cost attributes rough USD estimates to pipeline calls.
package cost

import "math"

// Rates holds per-provider pricing configuration.
type Rates struct {
	LLM     map[string]ModelRate `yaml:"llm" mapstructure:"llm"`
	GeoAPI  GeoAPIRate           `yaml:"geoapi" mapstructure:"geoapi"`
	Capture CaptureRate          `yaml:"capture" mapstructure:"capture"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// GeoAPIRate holds managed-geocoder pricing.
type GeoAPIRate struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// CaptureRate holds capture API pricing (billed per Find→Retrieve pair).
type CaptureRate struct {
	PerLookup float64 `yaml:"per_lookup" mapstructure:"per_lookup"`
}

// DefaultRates returns pricing used when config supplies none.
func DefaultRates() Rates {
	return Rates{
		LLM: map[string]ModelRate{
			"claude-3-5-haiku-latest":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-20250514": {Input: 3.00, Output: 15.00},
			"gpt-4o-mini":              {Input: 0.15, Output: 0.60},
		},
		GeoAPI:  GeoAPIRate{PerRequest: 0.0005},
		Capture: CaptureRate{PerLookup: 0.065},
	}
}

// EstimateTokens approximates the token count of text at ~4 characters per
// token. Only good for relative comparisons, never billing.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Calculator computes per-call cost estimates.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// LLM estimates the cost of one generative extraction from the prompt and
// reply text. Unknown models cost 0.
func (c *Calculator) LLM(model, prompt, output string) (inTokens, outTokens int, usd float64) {
	inTokens = EstimateTokens(prompt)
	outTokens = EstimateTokens(output)

	rate, ok := c.rates.LLM[model]
	if !ok {
		return inTokens, outTokens, 0
	}
	usd = (float64(inTokens)/1e6)*rate.Input + (float64(outTokens)/1e6)*rate.Output
	return inTokens, outTokens, round6(usd)
}

// GeoAPI estimates one managed-geocoder request.
func (c *Calculator) GeoAPI() float64 {
	return round6(c.rates.GeoAPI.PerRequest)
}

// Capture estimates one capture Find→Retrieve lookup.
func (c *Calculator) Capture() float64 {
	return round6(c.rates.Capture.PerLookup)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
