// Package country maps ISO 3166-1 alpha-3 codes to English country names.
package country

import (
	"strings"

	"github.com/biter777/countries"
)

// Codes used by statistical agencies that are not ISO assigned, or whose
// registry name differs from the one used across the datasets.
var overrides = map[string]string{
	"XKX": "Kosovo",
	"USA": "United States",
	"GBR": "United Kingdom",
	"RUS": "Russia",
	"KOR": "South Korea",
}

// Name returns the English name for an alpha-3 code. Unknown codes are
// returned unchanged.
func Name(alpha3 string) string {
	code := strings.ToUpper(strings.TrimSpace(alpha3))
	if code == "" {
		return alpha3
	}
	if n, ok := overrides[code]; ok {
		return n
	}
	if len(code) != 3 {
		return alpha3
	}
	c := countries.ByName(code)
	if c == countries.Unknown || !c.IsValid() || c.Alpha3() != code {
		return alpha3
	}
	return c.String()
}

// Code resolves a country name or code to its alpha-3 code.
func Code(name string) (string, bool) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", false
	}
	for code, alias := range overrides {
		if strings.EqualFold(alias, n) || strings.EqualFold(code, n) {
			return code, true
		}
	}
	c := countries.ByName(n)
	if c == countries.Unknown || !c.IsValid() {
		return "", false
	}
	return c.Alpha3(), true
}

// Key returns the canonical join key for a country: its alpha-3 code when
// resolvable, otherwise the trimmed name.
func Key(name string) string {
	if code, ok := Code(name); ok {
		return code
	}
	return strings.TrimSpace(name)
}
