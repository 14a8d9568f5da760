package types

import (
	"regexp"
	"strings"
)

// Dutch postcodes: four digits, two letters, e.g. "1012AB".
var postcodePattern = regexp.MustCompile(`^[1-9][0-9]{3}[A-Z]{2}$`)

// NormalizePostcode uppercases and strips spaces, so "1012 ab" becomes
// "1012AB". It does not validate.
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
}

func ValidPostcode(postcode string) bool {
	return postcodePattern.MatchString(NormalizePostcode(postcode))
}

// PostcodeRegion is the two-digit prefix used for regional matching.
// Postcodes sharing it are in the same region.
func PostcodeRegion(postcode string) string {
	normalized := NormalizePostcode(postcode)
	if len(normalized) < 2 {
		return ""
	}
	return normalized[:2]
}
