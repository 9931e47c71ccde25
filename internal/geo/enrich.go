package geo

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/model"
)

// Enricher resolves the most precise available centroid for a normalized
// address from the offline index: exact postcode first, then best city,
// then city-to-postcode inference anchored on the city centroid.
type Enricher struct {
	idx   Index
	limit int
}

// NewEnricher creates an Enricher over the given offline index.
func NewEnricher(idx Index) *Enricher {
	return &Enricher{idx: idx, limit: DefaultCandidateLimit}
}

// WithCandidateLimit bounds postcode-by-city candidate queries.
func (e *Enricher) WithCandidateLimit(n int) *Enricher {
	if n > 0 {
		e.limit = n
	}
	return e
}

// Enrich runs one tiered resolution pass over addr. It never fails: index
// errors are logged and treated as misses, and the accuracy tier only ever
// upgrades within the pass. Missing inputs leave the record untouched at
// tier "none".
func (e *Enricher) Enrich(ctx context.Context, addr model.NormalizedAddress) model.GeoEnrichedAddress {
	out := model.GeoEnrichedAddress{
		NormalizedAddress: addr,
		GeoAccuracy:       model.GeoAccuracyNone,
	}
	if e == nil || e.idx == nil {
		return out
	}

	log := zap.L().With(
		zap.String("country", addr.CountryCode),
		zap.String("postcode", addr.Postcode),
		zap.String("city", addr.City),
	)

	switch {
	case addr.CountryCode != "" && addr.Postcode != "":
		e.enrichByPostcode(ctx, &out, log)
	case addr.Postcode == "" && addr.CountryCode != "" && addr.City != "":
		e.enrichByCity(ctx, &out, log)
	}

	return out
}

// enrichByPostcode resolves the exact country+postcode centroid.
func (e *Enricher) enrichByPostcode(ctx context.Context, out *model.GeoEnrichedAddress, log *zap.Logger) {
	rec, err := ByPostcode(ctx, e.idx, out.CountryCode, out.Postcode)
	if err != nil {
		log.Warn("enrich: postcode lookup failed", zap.Error(err))
		return
	}
	if rec == nil {
		log.Debug("enrich: postcode miss")
		return
	}

	lat, lon, ok := rec.Centroid()
	if !ok {
		log.Debug("enrich: postcode record has no parseable centroid")
		return
	}

	out.SetCoordinate(lat, lon, model.GeoAccuracyPostcode)
	out.GeonamesMatch = strings.TrimSpace(rec.PlaceName + " " + out.Postcode)
}

// enrichByCity resolves the population-best city centroid, then tries to
// recover a postcode for the city. The city centroid is deliberately reused
// as the disambiguation anchor for the postcode query — dropping it would
// degrade postcode selection to arbitrary index order.
func (e *Enricher) enrichByCity(ctx context.Context, out *model.GeoEnrichedAddress, log *zap.Logger) {
	var refLat, refLon *float64

	cityRec, err := ByCityBest(ctx, e.idx, out.CountryCode, out.City)
	if err != nil {
		log.Warn("enrich: city lookup failed", zap.Error(err))
	} else if cityRec != nil {
		if lat, lon, ok := cityRec.Centroid(); ok {
			out.SetCoordinate(lat, lon, model.GeoAccuracyCity)
			out.GeonamesMatch = cityRec.PlaceName
			refLat, refLon = &lat, &lon
		}
	}

	pcRec, err := PostcodeForCity(ctx, e.idx, out.CountryCode, out.City, refLat, refLon, e.limit)
	if err != nil {
		log.Warn("enrich: postcode-by-city lookup failed", zap.Error(err))
		return
	}
	if pcRec == nil || pcRec.Postcode == "" {
		return
	}

	out.Postcode = pcRec.Postcode
	out.GeonamesMatch = strings.TrimSpace(pcRec.PlaceName + " " + pcRec.Postcode)
	if out.HasCoordinate() {
		// The city centroid stays as the coordinate, but a recovered
		// postcode makes the record postcode-precise.
		out.GeoAccuracy = model.GeoAccuracyPostcode
		return
	}
	if lat, lon, ok := pcRec.Centroid(); ok {
		out.SetCoordinate(lat, lon, model.GeoAccuracyPostcode)
	}
}
