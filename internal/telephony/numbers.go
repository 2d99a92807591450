package telephony

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizeNumber parses a free-form phone number against a default
// country and returns it in E.164 form. Every number crossing the store
// or provider boundary goes through this.
func NormalizeNumber(value, country string) (string, error) {
	if country == "" {
		country = "US"
	}
	num, err := phonenumbers.Parse(value, country)
	if err != nil {
		return "", fmt.Errorf("parsing number %q: %w", value, err)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeProviderNumber normalizes a number as delivered by the
// provider, which sends E.164 digits without the leading plus. Adding it
// back makes parsing independent of the default country.
func NormalizeProviderNumber(value string) (string, error) {
	if !strings.HasPrefix(value, "+") {
		value = "+" + value
	}
	return NormalizeNumber(value, "US")
}

// PrettyNumber formats an E.164 number for display, falling back to the
// input when it doesn't parse.
func PrettyNumber(number string) string {
	num, err := phonenumbers.Parse(number, "US")
	if err != nil {
		return number
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
