package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/internal/prompt"
	"github.com/parcelworks/addrsplit/pkg/llm"
)

var (
	// ErrEmptyResponse means the model returned no text at all.
	ErrEmptyResponse = eris.New("pipeline: empty model response")
	// ErrModelOutputNotJSON means no JSON object could be located in the
	// model reply.
	ErrModelOutputNotJSON = eris.New("pipeline: model output not json")
)

// LLMAdapter extracts address components with a generative model.
type LLMAdapter struct {
	client llm.Client
}

// NewLLMAdapter wires the adapter to a model client.
func NewLLMAdapter(client llm.Client) *LLMAdapter {
	return &LLMAdapter{client: client}
}

// Name implements Adapter.
func (a *LLMAdapter) Name() model.Pipeline { return model.PipelineLLM }

// Resolve renders the prompt template, calls the model, and parses the first
// JSON object from its reply.
func (a *LLMAdapter) Resolve(ctx context.Context, req Request) (map[string]any, error) {
	if a.client == nil {
		return nil, eris.New("pipeline: llm client not configured")
	}

	tpl := req.PromptTemplate
	if tpl == "" {
		tpl = prompt.DefaultTemplate
	}
	rendered := prompt.Render(tpl, prompt.Values{
		Name:        req.Name,
		CountryCode: req.CountryCode,
		RawAddress:  req.RawAddress,
	})

	reply, err := a.client.Complete(ctx, rendered)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: llm complete")
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyResponse
	}

	obj, err := ExtractJSONObject(reply)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, ErrModelOutputNotJSON
	}
	return out, nil
}

// ExtractJSONObject returns the first JSON object substring of text: the
// whole trimmed text when it is already an object, otherwise everything from
// the first '{' to the last '}'.
func ExtractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], nil
	}
	return "", ErrModelOutputNotJSON
}
