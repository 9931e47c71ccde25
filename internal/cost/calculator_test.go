package cost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestCalculator_LLM(t *testing.T) {
	c := NewCalculator(Rates{
		LLM: map[string]ModelRate{
			"haiku": {Input: 1.0, Output: 5.0},
		},
	})

	prompt := strings.Repeat("p", 4_000_000) // 1M tokens
	output := strings.Repeat("o", 400_000)   // 100k tokens

	in, out, usd := c.LLM("haiku", prompt, output)
	assert.Equal(t, 1_000_000, in)
	assert.Equal(t, 100_000, out)
	assert.InDelta(t, 1.5, usd, 1e-9)
}

func TestCalculator_LLM_UnknownModel(t *testing.T) {
	c := NewCalculator(Rates{})
	in, out, usd := c.LLM("mystery", "some prompt", "some output")
	assert.Greater(t, in, 0)
	assert.Greater(t, out, 0)
	assert.Equal(t, 0.0, usd)
}

func TestCalculator_PerRequestRates(t *testing.T) {
	c := NewCalculator(Rates{
		GeoAPI:  GeoAPIRate{PerRequest: 0.0005},
		Capture: CaptureRate{PerLookup: 0.065},
	})
	assert.Equal(t, 0.0005, c.GeoAPI())
	assert.Equal(t, 0.065, c.Capture())
}
