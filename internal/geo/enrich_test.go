package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/addrsplit/internal/model"
)

func TestEnrich_PostcodeExact(t *testing.T) {
	idx := &fakeIndex{postcodes: map[string]*model.PlaceRecord{
		"CH#8001": {PlaceName: "Zürich", Postcode: "8001", Latitude: "47.37", Longitude: "8.54"},
	}}
	e := NewEnricher(idx)

	got := e.Enrich(context.Background(), model.NormalizedAddress{
		CountryCode: "CH",
		Postcode:    "8001",
	})

	assert.Equal(t, model.GeoAccuracyPostcode, got.GeoAccuracy)
	require.True(t, got.HasCoordinate())
	assert.Equal(t, 47.37, *got.Latitude)
	assert.Equal(t, 8.54, *got.Longitude)
	assert.Equal(t, "Zürich 8001", got.GeonamesMatch)
}

func TestEnrich_PostcodeTakesPriorityOverCity(t *testing.T) {
	idx := &fakeIndex{
		postcodes: map[string]*model.PlaceRecord{
			"CH#8001": {PlaceName: "Zürich", Postcode: "8001", Latitude: "47.37", Longitude: "8.54"},
		},
		cities: map[string][]model.PlaceRecord{
			"CH#zurich": {{PlaceName: "Zürich", Latitude: "47.00", Longitude: "8.00"}},
		},
	}
	e := NewEnricher(idx)

	got := e.Enrich(context.Background(), model.NormalizedAddress{
		CountryCode: "CH",
		Postcode:    "8001",
		City:        "Zürich",
	})

	assert.Equal(t, model.GeoAccuracyPostcode, got.GeoAccuracy)
	assert.Equal(t, 47.37, *got.Latitude)
}

func TestEnrich_CityThenPostcodeRecovery(t *testing.T) {
	idx := &fakeIndex{
		cities: map[string][]model.PlaceRecord{
			"FR#lyon": {{PlaceName: "Lyon", Population: 500000, Latitude: "45.76", Longitude: "4.84"}},
		},
		cityPostcode: map[string][]model.PlaceRecord{
			"FR#lyon": {
				{PlaceName: "Lyon", Postcode: "69001", Latitude: "45.77", Longitude: "4.83"},
				{PlaceName: "Lyon", Postcode: "69500", Latitude: "46.20", Longitude: "4.84"},
			},
		},
	}
	e := NewEnricher(idx)

	got := e.Enrich(context.Background(), model.NormalizedAddress{
		CountryCode: "FR",
		City:        "Lyon",
	})

	// The city centroid stays as the coordinate, but recovering the nearest
	// postcode candidate upgrades the record to postcode accuracy.
	assert.Equal(t, "69001", got.Postcode)
	assert.Equal(t, "Lyon 69001", got.GeonamesMatch)
	require.True(t, got.HasCoordinate())
	assert.Equal(t, 45.76, *got.Latitude)
	assert.Equal(t, model.GeoAccuracyPostcode, got.GeoAccuracy)
}

func TestEnrich_CityMissButPostcodeRecovered(t *testing.T) {
	// No city record; the postcode-by-city hit supplies both the postcode
	// and the coordinate at postcode accuracy.
	idx := &fakeIndex{
		cityPostcode: map[string][]model.PlaceRecord{
			"FR#lyon": {{PlaceName: "Lyon", Postcode: "69001", Latitude: "45.77", Longitude: "4.83"}},
		},
	}
	e := NewEnricher(idx)

	got := e.Enrich(context.Background(), model.NormalizedAddress{
		CountryCode: "FR",
		City:        "Lyon",
	})

	assert.Equal(t, "69001", got.Postcode)
	assert.Equal(t, model.GeoAccuracyPostcode, got.GeoAccuracy)
	require.True(t, got.HasCoordinate())
	assert.Equal(t, 45.77, *got.Latitude)
}

func TestEnrich_NoInputsStaysNone(t *testing.T) {
	e := NewEnricher(&fakeIndex{})

	for _, addr := range []model.NormalizedAddress{
		{},
		{CountryCode: "CH"},
		{City: "Zürich"},
		{Postcode: "8001"},
	} {
		got := e.Enrich(context.Background(), addr)
		assert.Equal(t, model.GeoAccuracyNone, got.GeoAccuracy)
		assert.False(t, got.HasCoordinate())
	}
}

func TestEnrich_IndexErrorIsTreatedAsMiss(t *testing.T) {
	idx := &fakeIndex{err: assert.AnError}
	e := NewEnricher(idx)

	got := e.Enrich(context.Background(), model.NormalizedAddress{
		CountryCode: "CH",
		Postcode:    "8001",
	})

	assert.Equal(t, model.GeoAccuracyNone, got.GeoAccuracy)
	assert.False(t, got.HasCoordinate())
}

func TestEnrich_UnparseableCentroidStaysNone(t *testing.T) {
	idx := &fakeIndex{postcodes: map[string]*model.PlaceRecord{
		"CH#8001": {PlaceName: "Zürich", Postcode: "8001", Latitude: "", Longitude: ""},
	}}
	e := NewEnricher(idx)

	got := e.Enrich(context.Background(), model.NormalizedAddress{
		CountryCode: "CH",
		Postcode:    "8001",
	})

	assert.Equal(t, model.GeoAccuracyNone, got.GeoAccuracy)
	assert.Empty(t, got.GeonamesMatch)
}

func TestEnrich_PreservesNormalizedFields(t *testing.T) {
	e := NewEnricher(&fakeIndex{})

	addr := model.NormalizedAddress{
		CountryCode: "CH",
		City:        "Nowhere",
		RawAddress:  "raw input, verbatim",
		Confidence:  0.8,
		Warnings:    []string{"w"},
	}
	got := e.Enrich(context.Background(), addr)

	assert.Equal(t, addr, got.NormalizedAddress)
}
