package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/geo"
)

var (
	geonamesCountries []string
	geonamesLimit     int
	geonamesQuiet     bool
)

var geonamesCmd = &cobra.Command{
	Use:   "geonames",
	Short: "Manage the offline GeoNames index",
}

var importPostcodesCmd = &cobra.Command{
	Use:   "import-postcodes <dump.txt>",
	Short: "Import a GeoNames postal-code dump into the offline index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGeonamesImport(cmd, args[0], geo.ImportPostcodes)
	},
}

var importCitiesCmd = &cobra.Command{
	Use:   "import-cities <dump.txt>",
	Short: "Import a GeoNames cities dump into the offline index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGeonamesImport(cmd, args[0], geo.ImportCities)
	},
}

func runGeonamesImport(cmd *cobra.Command, path string, importFn func(ctx context.Context, idx *geo.SQLiteIndex, r io.Reader, opts geo.ImportOptions) (int, error)) error {
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "open dump file")
	}
	defer f.Close()

	idx, err := geo.NewSQLiteIndex(cfg.Index.Path)
	if err != nil {
		return eris.Wrap(err, "open index")
	}
	defer idx.Close()

	if err := idx.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate index")
	}

	n, err := importFn(ctx, idx, f, geo.ImportOptions{
		Countries: geonamesCountries,
		Limit:     geonamesLimit,
		Progress:  !geonamesQuiet,
	})
	if err != nil {
		return err
	}

	zap.L().Info("import complete",
		zap.String("file", path),
		zap.Int("rows", n),
	)
	return nil
}

func init() {
	geonamesCmd.PersistentFlags().StringSliceVar(&geonamesCountries, "countries", nil, "restrict import to these ISO-2 codes")
	geonamesCmd.PersistentFlags().IntVar(&geonamesLimit, "limit", 0, "stop after this many rows (0 = all)")
	geonamesCmd.PersistentFlags().BoolVar(&geonamesQuiet, "quiet", false, "disable the progress bar")
	geonamesCmd.AddCommand(importPostcodesCmd)
	geonamesCmd.AddCommand(importCitiesCmd)
	rootCmd.AddCommand(geonamesCmd)
}
