package namekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain lowercase", "zurich", "zurich"},
		{"uppercase", "ZURICH", "zurich"},
		{"diacritics", "Zürich", "zurich"},
		{"abbreviation dot", "St. Gallen", "st gallen"},
		{"hyphenated", "Aix-en-Provence", "aix en provence"},
		{"surrounding whitespace", "  Lyon \t", "lyon"},
		{"inner whitespace runs", "New   York", "new york"},
		{"apostrophe", "L'Aquila", "l aquila"},
		{"cedilla and tilde", "São Paulo", "sao paulo"},
		{"digits kept", "Soho 2000", "soho 2000"},
		{"empty", "", ""},
		{"only punctuation", "...", ""},
		{"non-latin dropped", "東京", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_EquivalentSpellings(t *testing.T) {
	assert.Equal(t, Normalize("zurich"), Normalize("Zürich"))
	assert.Equal(t, "zurich", Normalize("Zürich"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Zürich", "St. Gallen", "  A  - B  ", "Los Ángeles", ""}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
