// Package pipeline runs provider adapters concurrently and folds each one's
// raw output into a normalized, geo-enriched address record. Failures never
// cross pipeline boundaries: a broken adapter yields a zero-confidence record
// with explanatory warnings while its siblings proceed.
package pipeline

import (
	"context"
	"errors"

	"github.com/parcelworks/addrsplit/internal/model"
)

// Request carries one address submission into an adapter.
type Request struct {
	Name           string
	CountryCode    string
	RawAddress     string
	PromptTemplate string
	Model          string
}

// Adapter turns one provider's response into a raw field map. The map keys
// follow the canonical schema (address_line1, postcode, city, ...) and are
// coerced by the schema normalizer afterwards, so adapters may return partial
// or loosely-typed values.
type Adapter interface {
	Name() model.Pipeline
	Resolve(ctx context.Context, req Request) (map[string]any, error)
}

// warningCode maps a known adapter failure to its stable warning marker.
// Unknown errors fall back to the generic adapter_failure code.
func warningCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return "llm_empty_response"
	case errors.Is(err, ErrModelOutputNotJSON):
		return "llm_output_not_json"
	case errors.Is(err, ErrNoCandidates):
		return "capture_no_candidates"
	case errors.Is(err, ErrMissingID):
		return "capture_missing_id"
	case errors.Is(err, ErrRetrieveEmpty):
		return "capture_retrieve_empty"
	default:
		return "adapter_failure"
	}
}
