package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/pkg/places"
)

func placesStub(t *testing.T, body string) *places.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return places.NewClient(srv.URL, "test-index", "")
}

func TestGeoAPIAdapterStreetMatch(t *testing.T) {
	client := placesStub(t, `{"Results":[{"Place":{
		"Label":"Bahnhofstrasse 1, 8001 Zürich, ZH, CHE",
		"AddressNumber":"1",
		"Street":"Bahnhofstrasse",
		"Municipality":"Zürich",
		"Region":"Zurich",
		"PostalCode":"8001",
		"Country":"CHE",
		"Point":[8.539, 47.3778]
	}}]}`)

	a := NewGeoAPIAdapter(client)
	assert.Equal(t, model.PipelineGeoAPI, a.Name())

	raw, err := a.Resolve(context.Background(), Request{
		CountryCode: "CH",
		RawAddress:  "Bahnhofstrasse 1, 8001 Zürich",
	})
	require.NoError(t, err)

	assert.Equal(t, "street", raw["geo_accuracy"])
	assert.Equal(t, "Zürich", raw["city"])
	assert.Equal(t, "8001", raw["postcode"])
	assert.InDelta(t, 47.3778, raw["latitude"], 1e-9)
	assert.InDelta(t, 8.539, raw["longitude"], 1e-9)
	assert.Equal(t, 0.8, raw["confidence"])
}

func TestGeoAPIAdapterCityOnlyMatch(t *testing.T) {
	client := placesStub(t, `{"Results":[{"Place":{
		"Label":"Lyon, France",
		"Municipality":"Lyon",
		"Country":"FRA",
		"Point":[4.84, 45.76]
	}}]}`)

	raw, err := NewGeoAPIAdapter(client).Resolve(context.Background(), Request{RawAddress: "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, "city", raw["geo_accuracy"])
}

func TestGeoAPIAdapterNoMatch(t *testing.T) {
	client := placesStub(t, `{"Results":[]}`)

	raw, err := NewGeoAPIAdapter(client).Resolve(context.Background(), Request{
		CountryCode: "CH",
		RawAddress:  "nowhere at all",
	})
	require.NoError(t, err)

	assert.Equal(t, "none", raw["geo_accuracy"])
	assert.Equal(t, 0.0, raw["confidence"])
	assert.Equal(t, []string{"no_location_match"}, raw["warnings"])
	_, hasLat := raw["latitude"]
	assert.False(t, hasLat)
}

func TestGeoAPIAdapterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := NewGeoAPIAdapter(places.NewClient(srv.URL, "idx", ""))
	_, err := a.Resolve(context.Background(), Request{RawAddress: "x"})
	require.Error(t, err)
}
