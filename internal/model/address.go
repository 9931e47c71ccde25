// Package model holds the shared value types for address resolution.
package model

import "strconv"

// GeoAccuracy labels how precise a resolved coordinate is.
type GeoAccuracy string

const (
	GeoAccuracyNone     GeoAccuracy = "none"
	GeoAccuracyCity     GeoAccuracy = "city"
	GeoAccuracyPostcode GeoAccuracy = "postcode"
	GeoAccuracyStreet   GeoAccuracy = "street"
)

// geoAccuracyRank orders tiers from least to most precise.
var geoAccuracyRank = map[GeoAccuracy]int{
	GeoAccuracyNone:     0,
	GeoAccuracyCity:     1,
	GeoAccuracyPostcode: 2,
	GeoAccuracyStreet:   3,
}

// Rank returns the precision ordering of the tier. Unknown values rank as none.
func (g GeoAccuracy) Rank() int {
	return geoAccuracyRank[g]
}

// AtLeast reports whether g is the same tier as other or a more precise one.
func (g GeoAccuracy) AtLeast(other GeoAccuracy) bool {
	return g.Rank() >= other.Rank()
}

// NormalizedAddress is the canonical address record every provider output is
// coerced into. String fields are always non-nil; absent data is the empty
// string. RawAddress preserves the original input verbatim and Confidence is
// always within [0,1].
type NormalizedAddress struct {
	CountryCode  string   `json:"country_code"`
	AddressLine1 string   `json:"address_line1"`
	AddressLine2 string   `json:"address_line2"`
	Postcode     string   `json:"postcode"`
	City         string   `json:"city"`
	StateRegion  string   `json:"state_region"`
	Neighborhood string   `json:"neighborhood"`
	POBox        string   `json:"po_box"`
	Company      string   `json:"company"`
	Attention    string   `json:"attention"`
	RawAddress   string   `json:"raw_address"`
	Confidence   float64  `json:"confidence"`
	Warnings     []string `json:"warnings"`
}

// GeoEnrichedAddress is a NormalizedAddress plus resolved coordinates.
// Latitude and Longitude are either both set or both nil; when set,
// GeoAccuracy is not "none".
type GeoEnrichedAddress struct {
	NormalizedAddress

	Latitude      *float64    `json:"latitude,omitempty"`
	Longitude     *float64    `json:"longitude,omitempty"`
	GeoAccuracy   GeoAccuracy `json:"geo_accuracy"`
	GeonamesMatch string      `json:"geonames_match,omitempty"`
}

// SetCoordinate stores a centroid and upgrades the accuracy tier. Calls that
// would downgrade the current tier are ignored.
func (g *GeoEnrichedAddress) SetCoordinate(lat, lon float64, accuracy GeoAccuracy) {
	if !accuracy.AtLeast(g.GeoAccuracy) {
		return
	}
	g.Latitude = &lat
	g.Longitude = &lon
	g.GeoAccuracy = accuracy
}

// HasCoordinate reports whether a centroid has been resolved.
func (g *GeoEnrichedAddress) HasCoordinate() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// PlaceRecord is a read-only row from the offline place reference data.
// Latitude and longitude are kept as the decimal text the dataset ships
// with and parsed on read.
type PlaceRecord struct {
	CountryCode string `json:"country_code"`
	NameKey     string `json:"name_key"`
	PlaceName   string `json:"place_name"`
	Postcode    string `json:"postcode,omitempty"`
	Population  int64  `json:"population,omitempty"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Admin1Name  string `json:"admin1_name,omitempty"`
	Admin1Code  string `json:"admin1_code,omitempty"`
	GeonameID   string `json:"geoname_id,omitempty"`
}

// Centroid parses the stored coordinate text. ok is false when either
// component is missing or not a valid decimal number.
func (p PlaceRecord) Centroid() (lat, lon float64, ok bool) {
	if p.Latitude == "" || p.Longitude == "" {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(p.Latitude, 64)
	lon, errLon := strconv.ParseFloat(p.Longitude, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
