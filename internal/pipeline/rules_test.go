package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesAdapterMultilineEuropean(t *testing.T) {
	a := NewRulesAdapter()
	raw, err := a.Resolve(context.Background(), Request{
		Name:        "Hans Muster",
		CountryCode: "ch",
		RawAddress:  "Bahnhofstrasse 1\nPostfach 12\n8001 Zürich",
	})
	require.NoError(t, err)

	assert.Equal(t, "CH", raw["country_code"])
	assert.Equal(t, "Bahnhofstrasse 1", raw["address_line1"])
	assert.Equal(t, "Postfach 12", raw["address_line2"])
	assert.Equal(t, "8001", raw["postcode"])
	assert.Equal(t, "Zürich", raw["city"])
	assert.Equal(t, 0.55, raw["confidence"])
	assert.Equal(t, []string{"rules_parser"}, raw["warnings"])
}

func TestRulesAdapterSingleLineCommaSplit(t *testing.T) {
	a := NewRulesAdapter()
	raw, err := a.Resolve(context.Background(), Request{
		RawAddress: "10 Downing Street, SW1A 2AA London",
	})
	require.NoError(t, err)

	assert.Equal(t, "10 Downing Street", raw["address_line1"])
	assert.Equal(t, "SW1A 2AA", raw["postcode"])
	assert.Equal(t, "London", raw["city"])
}

func TestRulesAdapterStreetNumberNotPostcode(t *testing.T) {
	// "12 Springfield" looks like "<token> <rest>" but the token is too
	// short to be a postcode, so the last chunk becomes the city instead.
	a := NewRulesAdapter()
	raw, err := a.Resolve(context.Background(), Request{
		RawAddress: "Oak Lane, 12 Springfield",
	})
	require.NoError(t, err)

	assert.Equal(t, "Oak Lane", raw["address_line1"])
	assert.Equal(t, "", raw["postcode"])
	assert.Equal(t, "12 Springfield", raw["city"])
}

func TestRulesAdapterSingleChunk(t *testing.T) {
	a := NewRulesAdapter()
	raw, err := a.Resolve(context.Background(), Request{RawAddress: "Hauptplatz"})
	require.NoError(t, err)

	assert.Equal(t, "Hauptplatz", raw["address_line1"])
	assert.Equal(t, "", raw["city"])
}

func TestRulesAdapterEmptyInput(t *testing.T) {
	a := NewRulesAdapter()
	raw, err := a.Resolve(context.Background(), Request{RawAddress: ""})
	require.NoError(t, err)

	assert.Equal(t, 0.0, raw["confidence"])
	assert.Equal(t, []string{"rules_parser", "no_parse"}, raw["warnings"])
	assert.Equal(t, "", raw["address_line1"])
}
