package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/pkg/places"
)

// GeoAPIAdapter resolves free text through a managed geocoding API. Unlike
// the other adapters it yields native coordinates, so the resolver skips
// offline enrichment unless the provider reports no match.
type GeoAPIAdapter struct {
	client *places.Client
}

// NewGeoAPIAdapter wires the adapter to a places client.
func NewGeoAPIAdapter(client *places.Client) *GeoAPIAdapter {
	return &GeoAPIAdapter{client: client}
}

// Name implements Adapter.
func (a *GeoAPIAdapter) Name() model.Pipeline { return model.PipelineGeoAPI }

// Resolve searches the place index and maps provider components onto the
// canonical schema. Street-level accuracy is claimed only when the provider
// returned a street or house number.
func (a *GeoAPIAdapter) Resolve(ctx context.Context, req Request) (map[string]any, error) {
	if a.client == nil {
		return nil, eris.New("pipeline: places client not configured")
	}

	place, err := a.client.SearchText(ctx, req.RawAddress, req.CountryCode)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: places search")
	}
	if place == nil {
		return map[string]any{
			"country_code": req.CountryCode,
			"raw_address":  req.RawAddress,
			"geo_accuracy": "none",
			"confidence":   0.0,
			"warnings":     []string{"no_location_match"},
		}, nil
	}

	// Point is [lon, lat].
	var lat, lon any
	if len(place.Point) > 1 {
		lon = place.Point[0]
		lat = place.Point[1]
	}

	accuracy := "city"
	if place.Street != "" || place.AddressNumber != "" {
		accuracy = "street"
	}

	cc := place.Country
	if cc == "" {
		cc = req.CountryCode
	}

	return map[string]any{
		"country_code":  cc,
		"address_line1": place.Label,
		"postcode":      place.PostalCode,
		"city":          place.Municipality,
		"state_region":  place.Region,
		"raw_address":   req.RawAddress,
		"latitude":      lat,
		"longitude":     lon,
		"geo_accuracy":  accuracy,
		"confidence":    0.8,
	}, nil
}
