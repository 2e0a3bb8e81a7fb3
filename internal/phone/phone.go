// Package phone normalizes shared contact numbers and looks up where they
// are registered.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize returns phone in E.164 form: surrounding whitespace and visual
// separators removed, "+" prefixed when absent. Chat clients share contacts
// both with and without the plus sign.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			b.WriteRune(r)
		}
	}
	return "+" + b.String()
}

// Valid reports whether e164 looks like a normalized number: a plus sign
// followed by 7 to 15 digits.
func Valid(e164 string) bool {
	digits, ok := strings.CutPrefix(e164, "+")
	if !ok || len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Location is the best-effort registration region of a number.
type Location struct {
	Region      string
	CountryCode int
}

type Locator struct{}

func NewLocator() *Locator {
	return &Locator{}
}

// Locate resolves the region a number is registered in. Callers treat
// failure as non-fatal.
func (l *Locator) Locate(e164 string) (*Location, error) {
	num, err := phonenumbers.Parse(e164, "")
	if err != nil {
		return nil, fmt.Errorf("parse phone: %w", err)
	}
	region := phonenumbers.GetRegionCodeForNumber(num)
	if region == "" || region == "ZZ" {
		return nil, fmt.Errorf("no region for country code %d", num.GetCountryCode())
	}
	return &Location{
		Region:      region,
		CountryCode: int(num.GetCountryCode()),
	}, nil
}
