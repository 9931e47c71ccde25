package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/parcelworks/addrsplit/internal/model"
)

var (
	chunkSplitRe   = regexp.MustCompile(`[\n\r]+`)
	postcodeCityRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9\- ]{2,10})\s+(.+)$`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// RulesAdapter is a deterministic offline parser. It needs no provider and
// never fails; a best-effort split with modest confidence is always returned.
type RulesAdapter struct{}

// NewRulesAdapter creates the rule-based parser adapter.
func NewRulesAdapter() *RulesAdapter { return &RulesAdapter{} }

// Name implements Adapter.
func (a *RulesAdapter) Name() model.Pipeline { return model.PipelineRules }

// Resolve splits the raw address on newlines (falling back to commas), takes
// the first chunk as line1, and scans from the end for a "<postcode> <city>"
// chunk. Chunks between line1 and the postcode line become line2.
func (a *RulesAdapter) Resolve(_ context.Context, req Request) (map[string]any, error) {
	raw := req.RawAddress

	chunks := splitChunks(raw)

	confidence := 0.0
	if raw != "" {
		confidence = 0.55
	}
	out := map[string]any{
		"recipient_name": req.Name,
		"country_code":   strings.ToUpper(strings.TrimSpace(req.CountryCode)),
		"address_line1":  "",
		"address_line2":  "",
		"postcode":       "",
		"city":           "",
		"state_region":   "",
		"raw_address":    raw,
		"confidence":     confidence,
		"warnings":       []string{"rules_parser"},
	}

	if len(chunks) == 0 {
		out["warnings"] = []string{"rules_parser", "no_parse"}
		return out, nil
	}

	out["address_line1"] = chunks[0]

	for idx := len(chunks) - 1; idx >= 0; idx-- {
		m := postcodeCityRe.FindStringSubmatch(chunks[idx])
		if m == nil {
			continue
		}
		pc := strings.TrimSpace(m[1])
		city := strings.TrimSpace(m[2])
		// A street number would match too; demand a postcode-like token of
		// at least 4 characters once spaces are removed.
		if len(spaceRe.ReplaceAllString(pc, "")) < 4 {
			continue
		}
		out["postcode"] = pc
		out["city"] = city
		if idx > 1 {
			out["address_line2"] = strings.Join(chunks[1:idx], ", ")
		}
		break
	}

	// Postcode omitted entirely: take the last chunk as the city.
	if out["city"] == "" && len(chunks) >= 2 {
		out["city"] = chunks[len(chunks)-1]
	}

	return out, nil
}

func splitChunks(raw string) []string {
	trim := func(parts []string) []string {
		var out []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	chunks := trim(chunkSplitRe.Split(raw, -1))
	if len(chunks) <= 1 {
		chunks = trim(strings.Split(raw, ","))
	}
	return chunks
}
