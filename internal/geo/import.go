package geo

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/internal/namekey"
)

// ImportOptions filter and bound a GeoNames dump import.
type ImportOptions struct {
	// Countries limits the import to these ISO-2 codes; empty imports all.
	Countries []string
	// Limit stops after this many rows when positive.
	Limit int
	// Progress renders a progress bar to stderr.
	Progress bool
}

func (o ImportOptions) countrySet() map[string]bool {
	set := make(map[string]bool, len(o.Countries))
	for _, c := range o.Countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			set[c] = true
		}
	}
	return set
}

func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

func newImportBar(enabled bool, desc string) *progressbar.ProgressBar {
	if !enabled {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// ImportPostcodes loads a GeoNames postal-code dump (tab-separated, the
// allCountries.txt layout) into the offline index. Each row is keyed by
// "CC#POSTCODE" and secondarily by the normalized place-name key so the
// city-to-postcode resolver can range over it. Returns rows imported.
func ImportPostcodes(ctx context.Context, idx *SQLiteIndex, r io.Reader, opts ImportOptions) (int, error) {
	countries := opts.countrySet()
	reader := newTSVReader(r)
	bar := newImportBar(opts.Progress, "importing postcodes")

	n := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, eris.Wrap(err, "geoimport: read postcode row")
		}
		if len(row) < 12 {
			continue
		}

		cc := strings.ToUpper(strings.TrimSpace(row[0]))
		pc := strings.TrimSpace(row[1])
		if cc == "" || pc == "" {
			continue
		}
		if len(countries) > 0 && !countries[cc] {
			continue
		}

		place := strings.TrimSpace(row[2])
		rec := model.PlaceRecord{
			CountryCode: cc,
			Postcode:    pc,
			PlaceName:   place,
			Admin1Name:  strings.TrimSpace(row[3]),
			Admin1Code:  strings.TrimSpace(row[4]),
			Latitude:    strings.TrimSpace(row[9]),
			Longitude:   strings.TrimSpace(row[10]),
		}

		pk := cc + "#" + pc
		cityKey := cc + "#" + namekey.Normalize(place)
		if err := idx.UpsertPostcode(ctx, pk, cityKey, rec); err != nil {
			return n, err
		}

		n++
		if bar != nil {
			_ = bar.Add(1)
		}
		if opts.Limit > 0 && n >= opts.Limit {
			break
		}
	}

	zap.L().Info("geonames postcode import complete", zap.Int("rows", n))
	return n, nil
}

// ImportCities loads a GeoNames cities dump (tab-separated, the cities5000.txt
// layout) into the offline index, keyed by the normalized name so reads come
// back ranked by population. Returns rows imported.
func ImportCities(ctx context.Context, idx *SQLiteIndex, r io.Reader, opts ImportOptions) (int, error) {
	countries := opts.countrySet()
	reader := newTSVReader(r)
	bar := newImportBar(opts.Progress, "importing cities")

	n := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, eris.Wrap(err, "geoimport: read city row")
		}
		if len(row) < 15 {
			continue
		}

		name := strings.TrimSpace(row[1])
		asciiName := strings.TrimSpace(row[2])
		cc := strings.ToUpper(strings.TrimSpace(row[8]))
		if cc == "" || name == "" {
			continue
		}
		if len(countries) > 0 && !countries[cc] {
			continue
		}

		pop, err := strconv.ParseInt(strings.TrimSpace(row[14]), 10, 64)
		if err != nil {
			pop = 0
		}

		keySource := asciiName
		if keySource == "" {
			keySource = name
		}
		key := namekey.Normalize(keySource)
		if key == "" {
			continue
		}

		rec := model.PlaceRecord{
			CountryCode: cc,
			PlaceName:   name,
			Population:  pop,
			Latitude:    strings.TrimSpace(row[4]),
			Longitude:   strings.TrimSpace(row[5]),
			Admin1Code:  strings.TrimSpace(row[10]),
			GeonameID:   strings.TrimSpace(row[0]),
		}

		if err := idx.UpsertCity(ctx, cc+"#"+key, rec); err != nil {
			return n, err
		}

		n++
		if bar != nil {
			_ = bar.Add(1)
		}
		if opts.Limit > 0 && n >= opts.Limit {
			break
		}
	}

	zap.L().Info("geonames city import complete", zap.Int("rows", n))
	return n, nil
}
