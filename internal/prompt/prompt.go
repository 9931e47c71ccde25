// Package prompt renders and validates the user-editable extraction prompt
// template.
package prompt

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultTemplate is used when a user has not saved their own template.
const DefaultTemplate = "Take the {country} and split the following address: {address}. Return ONLY JSON."

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

var allowedPlaceholders = map[string]bool{
	"name":    true,
	"country": true,
	"address": true,
}

// Values fills the template placeholders.
type Values struct {
	Name        string
	CountryCode string
	RawAddress  string
}

// Render substitutes the known placeholders into template. Blank values are
// rendered as "(blank)" and "(auto)" markers so the model sees an explicit
// signal instead of a hole; unknown {placeholders} are left untouched.
// Repeated spaces are collapsed per line, newlines preserved.
func Render(template string, v Values) string {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		name = "(blank)"
	}
	country := strings.ToUpper(strings.TrimSpace(v.CountryCode))
	if country == "" {
		country = "(auto)"
	}

	rendered := template
	rendered = strings.ReplaceAll(rendered, "{name}", name)
	rendered = strings.ReplaceAll(rendered, "{country}", country)
	rendered = strings.ReplaceAll(rendered, "{address}", strings.TrimSpace(v.RawAddress))

	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Validate checks a user-supplied template: it must reference {address} and
// may only use the known placeholders.
func Validate(template string) error {
	if !strings.Contains(template, "{address}") {
		return eris.New("prompt: template must include {address}")
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !allowedPlaceholders[m[1]] {
			return eris.Errorf("prompt: unsupported placeholder {%s}", m[1])
		}
	}
	return nil
}
