package geo

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/internal/namekey"
)

// DefaultCandidateLimit bounds postcode-by-city range queries.
const DefaultCandidateLimit = 25

// postcodeKey builds the "CC#POSTCODE" point-lookup key.
func postcodeKey(country, postcode string) string {
	return strings.ToUpper(country) + "#" + strings.TrimSpace(postcode)
}

// cityKeys returns the normalized-name key and, when it differs, the plain
// lowercase-trim secondary key. Older index loads were written before name
// normalization existed, so both spellings have to be tried.
func cityKeys(country, city string) []string {
	cc := strings.ToUpper(country)
	primary := cc + "#" + namekey.Normalize(city)

	plain := cc + "#" + strings.ToLower(strings.TrimSpace(city))
	if plain == primary {
		return []string{primary}
	}
	return []string{primary, plain}
}

// ByPostcode looks up the centroid record for an exact country+postcode pair.
// Empty inputs and lookup misses both yield (nil, nil).
func ByPostcode(ctx context.Context, idx PostcodeIndex, country, postcode string) (*model.PlaceRecord, error) {
	if strings.TrimSpace(country) == "" || strings.TrimSpace(postcode) == "" {
		return nil, nil
	}

	rec, err := idx.GetPostcode(ctx, postcodeKey(country, postcode))
	if err != nil {
		return nil, eris.Wrap(err, "geo: postcode lookup")
	}
	return rec, nil
}

// ByCityBest returns the highest-population city record matching the
// normalized name key, falling back to the plain lowercase key for legacy
// index entries. The index returns candidates population-descending, so the
// first row wins.
func ByCityBest(ctx context.Context, idx CityIndex, country, city string) (*model.PlaceRecord, error) {
	if strings.TrimSpace(country) == "" || strings.TrimSpace(city) == "" {
		return nil, nil
	}

	for _, key := range cityKeys(country, city) {
		rows, err := idx.QueryCities(ctx, key, 1)
		if err != nil {
			return nil, eris.Wrap(err, "geo: city lookup")
		}
		if len(rows) > 0 {
			rec := rows[0]
			return &rec, nil
		}
	}
	return nil, nil
}

// PostcodeForCity infers a postcode record from a city name. With multiple
// candidates and a reference coordinate, the candidate whose centroid is
// nearest to the reference wins (ties keep the earlier candidate in natural
// ascending-postcode order); without a reference, the first candidate wins.
// Candidates with unparseable centroids are skipped during distance ranking;
// if none parse, the first candidate is returned.
func PostcodeForCity(ctx context.Context, idx PostcodeCityIndex, country, city string, refLat, refLon *float64, limit int) (*model.PlaceRecord, error) {
	if strings.TrimSpace(country) == "" || strings.TrimSpace(city) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	var candidates []model.PlaceRecord
	for _, key := range cityKeys(country, city) {
		rows, err := idx.QueryPostcodesByCity(ctx, key, limit)
		if err != nil {
			return nil, eris.Wrap(err, "geo: postcode-by-city lookup")
		}
		if len(rows) > 0 {
			candidates = rows
			break
		}
	}

	switch {
	case len(candidates) == 0:
		return nil, nil
	case len(candidates) == 1:
		return &candidates[0], nil
	}

	if refLat == nil || refLon == nil {
		return &candidates[0], nil
	}

	best := -1
	bestDist := math.Inf(1)
	for i := range candidates {
		lat, lon, ok := candidates[i].Centroid()
		if !ok {
			continue
		}
		d := DistanceKm(*refLat, *refLon, lat, lon)
		if math.IsNaN(d) {
			continue
		}
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return &candidates[0], nil
	}
	return &candidates[best], nil
}
