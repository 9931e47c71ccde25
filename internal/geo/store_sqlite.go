package geo

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/parcelworks/addrsplit/internal/model"
)

// SQLiteIndex implements Index over a local SQLite file produced by the
// GeoNames importer. All request-time access is read-only.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (or creates) the offline index database at dsn.
func NewSQLiteIndex(dsn string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "geoindex: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "geoindex: exec %s", pragma)
		}
	}
	return &SQLiteIndex{db: db}, nil
}

const indexMigration = `
CREATE TABLE IF NOT EXISTS geonames_postcodes (
	pk           TEXT PRIMARY KEY,
	city_key     TEXT NOT NULL,
	country_code TEXT NOT NULL,
	postcode     TEXT NOT NULL,
	place_name   TEXT NOT NULL DEFAULT '',
	admin1_name  TEXT NOT NULL DEFAULT '',
	admin1_code  TEXT NOT NULL DEFAULT '',
	latitude     TEXT NOT NULL DEFAULT '',
	longitude    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_geonames_postcodes_city_key
	ON geonames_postcodes(city_key, postcode);

CREATE TABLE IF NOT EXISTS geonames_cities (
	city_key     TEXT NOT NULL,
	geoname_id   TEXT NOT NULL,
	country_code TEXT NOT NULL,
	name         TEXT NOT NULL,
	population   INTEGER NOT NULL DEFAULT 0,
	latitude     TEXT NOT NULL DEFAULT '',
	longitude    TEXT NOT NULL DEFAULT '',
	admin1_code  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (city_key, geoname_id)
);

CREATE INDEX IF NOT EXISTS idx_geonames_cities_population
	ON geonames_cities(city_key, population DESC);
`

// Migrate creates the index tables when missing.
func (s *SQLiteIndex) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, indexMigration)
	return eris.Wrap(err, "geoindex: migrate")
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// GetPostcode implements PostcodeIndex.
func (s *SQLiteIndex) GetPostcode(ctx context.Context, key string) (*model.PlaceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT country_code, postcode, place_name, admin1_name, admin1_code, latitude, longitude
		FROM geonames_postcodes WHERE pk = ?`, key)

	var rec model.PlaceRecord
	err := row.Scan(&rec.CountryCode, &rec.Postcode, &rec.PlaceName,
		&rec.Admin1Name, &rec.Admin1Code, &rec.Latitude, &rec.Longitude)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "geoindex: get postcode")
	}
	return &rec, nil
}

// QueryCities implements CityIndex, population descending.
func (s *SQLiteIndex) QueryCities(ctx context.Context, key string, limit int) ([]model.PlaceRecord, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT country_code, name, population, latitude, longitude, admin1_code, geoname_id
		FROM geonames_cities WHERE city_key = ?
		ORDER BY population DESC, geoname_id ASC
		LIMIT ?`, key, limit)
	if err != nil {
		return nil, eris.Wrap(err, "geoindex: query cities")
	}
	defer rows.Close()

	var out []model.PlaceRecord
	for rows.Next() {
		var rec model.PlaceRecord
		if err := rows.Scan(&rec.CountryCode, &rec.PlaceName, &rec.Population,
			&rec.Latitude, &rec.Longitude, &rec.Admin1Code, &rec.GeonameID); err != nil {
			return nil, eris.Wrap(err, "geoindex: scan city")
		}
		rec.NameKey = key
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "geoindex: iterate cities")
}

// QueryPostcodesByCity implements PostcodeCityIndex, postcode ascending.
func (s *SQLiteIndex) QueryPostcodesByCity(ctx context.Context, key string, limit int) ([]model.PlaceRecord, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT country_code, postcode, place_name, admin1_name, admin1_code, latitude, longitude
		FROM geonames_postcodes WHERE city_key = ?
		ORDER BY postcode ASC
		LIMIT ?`, key, limit)
	if err != nil {
		return nil, eris.Wrap(err, "geoindex: query postcodes by city")
	}
	defer rows.Close()

	var out []model.PlaceRecord
	for rows.Next() {
		var rec model.PlaceRecord
		if err := rows.Scan(&rec.CountryCode, &rec.Postcode, &rec.PlaceName,
			&rec.Admin1Name, &rec.Admin1Code, &rec.Latitude, &rec.Longitude); err != nil {
			return nil, eris.Wrap(err, "geoindex: scan postcode")
		}
		rec.NameKey = key
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "geoindex: iterate postcodes")
}

// UpsertPostcode writes one postcode row. Used by the importer only.
func (s *SQLiteIndex) UpsertPostcode(ctx context.Context, pk, cityKey string, rec model.PlaceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geonames_postcodes
			(pk, city_key, country_code, postcode, place_name, admin1_name, admin1_code, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pk) DO UPDATE SET
			city_key = excluded.city_key,
			place_name = excluded.place_name,
			admin1_name = excluded.admin1_name,
			admin1_code = excluded.admin1_code,
			latitude = excluded.latitude,
			longitude = excluded.longitude`,
		pk, cityKey, rec.CountryCode, rec.Postcode, rec.PlaceName,
		rec.Admin1Name, rec.Admin1Code, rec.Latitude, rec.Longitude,
	)
	return eris.Wrap(err, "geoindex: upsert postcode")
}

// UpsertCity writes one city row. Used by the importer only.
func (s *SQLiteIndex) UpsertCity(ctx context.Context, cityKey string, rec model.PlaceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geonames_cities
			(city_key, geoname_id, country_code, name, population, latitude, longitude, admin1_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (city_key, geoname_id) DO UPDATE SET
			name = excluded.name,
			population = excluded.population,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			admin1_code = excluded.admin1_code`,
		cityKey, rec.GeonameID, rec.CountryCode, rec.PlaceName,
		rec.Population, rec.Latitude, rec.Longitude, rec.Admin1Code,
	)
	return eris.Wrap(err, "geoindex: upsert city")
}
