package carrier

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCountry means the country name maps to no carrier code.
// Guessing a country would validate the address against the wrong
// postal system, so callers reject the input instead.
var ErrUnknownCountry = errors.New("unknown country")

// countryCodes maps the country names the storefront ships to onto
// ISO 3166-1 alpha-2 codes the carrier API expects.
var countryCodes = map[string]string{
	"united states":        "US",
	"canada":               "CA",
	"united kingdom":       "GB",
	"australia":            "AU",
	"germany":              "DE",
	"france":               "FR",
	"italy":                "IT",
	"spain":                "ES",
	"india":                "IN",
	"japan":                "JP",
	"singapore":            "SG",
	"united arab emirates": "AE",
}

// countryNames is the reverse mapping, used when a carrier-canonical
// address is written back onto the customer's copy.
var countryNames = map[string]string{
	"US": "United States",
	"CA": "Canada",
	"GB": "United Kingdom",
	"AU": "Australia",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"IN": "India",
	"JP": "Japan",
	"SG": "Singapore",
	"AE": "United Arab Emirates",
}

// CountryCode converts a country name to its carrier code. Inputs that
// already look like a two-letter code pass through uppercased.
func CountryCode(country string) (string, error) {
	if len(country) == 2 {
		return strings.ToUpper(country), nil
	}
	if code, ok := countryCodes[strings.ToLower(strings.TrimSpace(country))]; ok {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCountry, country)
}

// CountryName converts a carrier country code back to the display name
// stored on addresses. Unknown codes pass through unchanged.
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}
