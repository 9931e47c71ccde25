package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/pkg/capture"
)

func captureStub(t *testing.T, findBody, retrieveBody string) *capture.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/Find/") {
			w.Write([]byte(findBody))
			return
		}
		w.Write([]byte(retrieveBody))
	}))
	t.Cleanup(srv.Close)
	return capture.NewClient(srv.URL, "test-key")
}

func TestCaptureAdapterHappyPath(t *testing.T) {
	client := captureStub(t,
		`{"Items":[{"Id":"CH|A|1","Text":"Bahnhofstrasse 1, Zürich","Type":"Address"}]}`,
		`{"Items":[{
			"Line1":"Bahnhofstrasse 1",
			"City":"Zürich",
			"Province":"ZH",
			"PostalCode":"8001",
			"CountryIso2":"ch"
		}]}`)

	a := NewCaptureAdapter(client)
	assert.Equal(t, model.PipelineCapture, a.Name())

	raw, err := a.Resolve(context.Background(), Request{RawAddress: "Bahnhofstrasse 1, 8001 Zürich"})
	require.NoError(t, err)

	assert.Equal(t, "CH", raw["country_code"])
	assert.Equal(t, "Bahnhofstrasse 1", raw["address_line1"])
	assert.Equal(t, "8001", raw["postcode"])
	assert.Equal(t, "Zürich", raw["city"])
	assert.Equal(t, "ZH", raw["state_region"])
	assert.Equal(t, 0.9, raw["confidence"])
}

func TestCaptureAdapterFoldsExtraLines(t *testing.T) {
	client := captureStub(t,
		`{"Items":[{"Id":"GB|A|2","Text":"x","Type":"Address"}]}`,
		`{"Items":[{
			"Line1":"Unit 4",
			"Line3":"Science Park",
			"Line4":"Milton Road",
			"City":"Cambridge",
			"PostalCode":"CB4 0AB",
			"CountryIso2":"GB"
		}]}`)

	raw, err := NewCaptureAdapter(client).Resolve(context.Background(), Request{RawAddress: "unit 4"})
	require.NoError(t, err)
	assert.Equal(t, "Science Park, Milton Road", raw["address_line2"])
}

func TestCaptureAdapterCountryFallsBackToHint(t *testing.T) {
	client := captureStub(t,
		`{"Items":[{"Id":"X|A|3","Text":"x","Type":"Address"}]}`,
		`{"Items":[{"Line1":"Somewhere 1"}]}`)

	raw, err := NewCaptureAdapter(client).Resolve(context.Background(), Request{
		CountryCode: "de",
		RawAddress:  "somewhere 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "DE", raw["country_code"])
}

func TestCaptureAdapterNoCandidates(t *testing.T) {
	client := captureStub(t, `{"Items":[]}`, `{}`)

	_, err := NewCaptureAdapter(client).Resolve(context.Background(), Request{RawAddress: "x"})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestCaptureAdapterMissingID(t *testing.T) {
	client := captureStub(t, `{"Items":[{"Id":"  ","Text":"x","Type":"Address"}]}`, `{}`)

	_, err := NewCaptureAdapter(client).Resolve(context.Background(), Request{RawAddress: "x"})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestCaptureAdapterRetrieveEmpty(t *testing.T) {
	client := captureStub(t, `{"Items":[{"Id":"A|1","Text":"x","Type":"Address"}]}`, `{"Items":[]}`)

	_, err := NewCaptureAdapter(client).Resolve(context.Background(), Request{RawAddress: "x"})
	assert.ErrorIs(t, err, ErrRetrieveEmpty)
}

func TestCaptureAdapterEmptyAddress(t *testing.T) {
	a := NewCaptureAdapter(captureStub(t, `{}`, `{}`))
	_, err := a.Resolve(context.Background(), Request{RawAddress: "   "})
	require.Error(t, err)
}
