package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoAccuracy_Ordering(t *testing.T) {
	assert.True(t, GeoAccuracyStreet.AtLeast(GeoAccuracyPostcode))
	assert.True(t, GeoAccuracyPostcode.AtLeast(GeoAccuracyCity))
	assert.True(t, GeoAccuracyCity.AtLeast(GeoAccuracyNone))
	assert.False(t, GeoAccuracyCity.AtLeast(GeoAccuracyPostcode))
	assert.True(t, GeoAccuracyCity.AtLeast(GeoAccuracyCity))
}

func TestGeoAccuracy_UnknownRanksAsNone(t *testing.T) {
	assert.Equal(t, 0, GeoAccuracy("bogus").Rank())
}

func TestSetCoordinate_Upgrades(t *testing.T) {
	var g GeoEnrichedAddress
	g.GeoAccuracy = GeoAccuracyNone

	g.SetCoordinate(47.37, 8.54, GeoAccuracyCity)

	assert.True(t, g.HasCoordinate())
	assert.Equal(t, GeoAccuracyCity, g.GeoAccuracy)
	assert.Equal(t, 47.37, *g.Latitude)
	assert.Equal(t, 8.54, *g.Longitude)
}

func TestSetCoordinate_NeverDowngrades(t *testing.T) {
	var g GeoEnrichedAddress
	g.SetCoordinate(47.37, 8.54, GeoAccuracyPostcode)

	g.SetCoordinate(1.0, 2.0, GeoAccuracyCity)

	assert.Equal(t, GeoAccuracyPostcode, g.GeoAccuracy)
	assert.Equal(t, 47.37, *g.Latitude)
}

func TestSetCoordinate_SameTierReplaces(t *testing.T) {
	var g GeoEnrichedAddress
	g.SetCoordinate(47.37, 8.54, GeoAccuracyPostcode)

	g.SetCoordinate(45.76, 4.84, GeoAccuracyPostcode)

	assert.Equal(t, 45.76, *g.Latitude)
	assert.Equal(t, 4.84, *g.Longitude)
}

func TestPlaceRecord_Centroid(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
		wantOK   bool
	}{
		{"valid", "47.37", "8.54", true},
		{"negative", "-33.86", "151.20", true},
		{"missing latitude", "", "8.54", false},
		{"missing longitude", "47.37", "", false},
		{"garbage", "n/a", "8.54", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlaceRecord{Latitude: tt.lat, Longitude: tt.lon}
			_, _, ok := p.Centroid()
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
