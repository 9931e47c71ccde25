package capture

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindReturnsCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, findPath, r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("Key"))
		assert.Equal(t, "Bahnhofstrasse 1", r.URL.Query().Get("Text"))
		assert.Equal(t, "3", r.URL.Query().Get("Limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Items":[
			{"Id":"CH|CP|A|123","Text":"Bahnhofstrasse 1, Zürich","Type":"Address"},
			{"Id":"CH|CP|B|456","Text":"Bahnhofstrasse, Zürich","Type":"Street"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	items, err := c.Find(context.Background(), "Bahnhofstrasse 1", 3, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "CH|CP|A|123", items[0].ID)
	assert.Equal(t, "Address", items[0].Type)
}

func TestFindClampsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("Limit"))
		w.Write([]byte(`{"Items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	items, err := c.Find(context.Background(), "x", 50, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRetrieveParsesComponents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, retrievePath, r.URL.Path)
		assert.Equal(t, "CH|CP|A|123", r.URL.Query().Get("Id"))
		w.Write([]byte(`{"Items":[{
			"Line1":"Bahnhofstrasse 1",
			"City":"Zürich",
			"PostalCode":"8001",
			"CountryIso2":"CH",
			"Company":"Acme AG"
		}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	items, err := c.Retrieve(context.Background(), "CH|CP|A|123")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bahnhofstrasse 1", items[0].Str("Line1"))
	assert.Equal(t, "8001", items[0].Str("PostalCode", "Postcode"))
	assert.Equal(t, "CH", items[0].Str("CountryIso2", "CountryISO2"))
}

func TestRetrieveItemStrFirstNonEmpty(t *testing.T) {
	item := RetrieveItem{
		"PostalCode": "  ",
		"Postcode":   "75001",
		"City":       42, // wrong type is skipped
	}
	assert.Equal(t, "75001", item.Str("PostalCode", "Postcode"))
	assert.Equal(t, "", item.Str("City"))
	assert.Equal(t, "", item.Str("Missing"))
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.Find(context.Background(), "x", 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTransientErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Items":[{"Id":"ID|1","Text":"1 Main St","Type":"Address"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	items, err := c.Find(context.Background(), "1 Main St", 1, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(2), calls.Load())
}
