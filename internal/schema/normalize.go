// Package schema coerces arbitrary provider output into the canonical
// address record.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/parcelworks/addrsplit/internal/model"
)

// Fallback supplies values for fields a provider left empty.
type Fallback struct {
	CountryCode string
	RawAddress  string
}

// Normalize reconciles a raw provider map into a NormalizedAddress. It is a
// total coercion: it never fails, no matter how malformed the input is.
// Nulls become empty strings, non-string values are stringified, every string
// is trimmed, country codes are uppercased, confidence is clamped to [0,1]
// (non-numeric input collapses to 0.0), and warnings are coerced from a list,
// a scalar, or absence into a list of non-empty trimmed strings.
func Normalize(raw map[string]any, fb Fallback) model.NormalizedAddress {
	out := model.NormalizedAddress{
		CountryCode:  stringField(raw, "country_code"),
		AddressLine1: stringField(raw, "address_line1"),
		AddressLine2: stringField(raw, "address_line2"),
		Postcode:     stringField(raw, "postcode"),
		City:         stringField(raw, "city"),
		StateRegion:  stringField(raw, "state_region"),
		Neighborhood: stringField(raw, "neighborhood"),
		POBox:        stringField(raw, "po_box"),
		Company:      stringField(raw, "company"),
		Attention:    stringField(raw, "attention"),
		RawAddress:   stringField(raw, "raw_address"),
	}

	if out.RawAddress == "" {
		out.RawAddress = fb.RawAddress
	}

	if out.CountryCode == "" {
		out.CountryCode = fb.CountryCode
	}
	out.CountryCode = strings.ToUpper(strings.TrimSpace(out.CountryCode))

	out.Confidence = clamp01(toFloat(raw["confidence"]))
	out.Warnings = coerceWarnings(raw["warnings"])

	return out
}

// stringField reads a key as a trimmed string, stringifying non-string values
// and treating null as empty.
func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// toFloat parses any value as a float, returning 0 when it cannot.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func clamp01(f float64) float64 {
	// NaN compares false against both bounds; collapse it like any other
	// non-numeric input.
	if !(f > 0) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// coerceWarnings accepts a list (each element stringified, trimmed, empties
// dropped), a scalar (wrapped when non-empty), or anything else (empty list).
func coerceWarnings(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, 0, len(t))
		for _, w := range t {
			if s := strings.TrimSpace(w); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, w := range t {
			if s := strings.TrimSpace(stringify(w)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(stringify(t)); s != "" {
			return []string{s}
		}
		return []string{}
	}
}
