package geo

import (
	"context"

	"github.com/parcelworks/addrsplit/internal/model"
)

// PostcodeIndex is the point-lookup collaborator over the offline postcode
// dataset. Keys are "CC#POSTCODE" composites; a miss returns (nil, nil).
type PostcodeIndex interface {
	GetPostcode(ctx context.Context, key string) (*model.PlaceRecord, error)
}

// CityIndex is the range-query collaborator over the offline city dataset.
// Records under one key must come back ordered by population descending —
// the city-best resolver takes the first row as the winner.
type CityIndex interface {
	QueryCities(ctx context.Context, key string, limit int) ([]model.PlaceRecord, error)
}

// PostcodeCityIndex is the secondary range-query collaborator that lists
// postcode records by their normalized place-name key, ordered by postcode
// ascending (the natural order used for tie-breaking).
type PostcodeCityIndex interface {
	QueryPostcodesByCity(ctx context.Context, key string, limit int) ([]model.PlaceRecord, error)
}

// Index bundles the three offline lookup surfaces. Implementations must be
// read-only and safe for unbounded concurrent callers.
type Index interface {
	PostcodeIndex
	CityIndex
	PostcodeCityIndex
}
