package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "1012AB", NormalizePostcode("1012 ab"))
	assert.Equal(t, "8011AA", NormalizePostcode("  8011aa "))
	assert.Equal(t, "1012AB", NormalizePostcode("1012AB"))
}

func TestValidPostcode(t *testing.T) {
	valid := []string{"1012AB", "8011 AA", "9999zz"}
	for _, p := range valid {
		assert.Truef(t, ValidPostcode(p), "expected %q valid", p)
	}

	invalid := []string{"", "10", "0123AB", "1012A", "1012ABC", "ABCDEF", "1012-AB"}
	for _, p := range invalid {
		assert.Falsef(t, ValidPostcode(p), "expected %q invalid", p)
	}
}

func TestPostcodeRegion(t *testing.T) {
	assert.Equal(t, "10", PostcodeRegion("1012AB"))
	assert.Equal(t, "80", PostcodeRegion("8011 aa"))
	assert.Equal(t, "", PostcodeRegion("8"))
}

func TestOrganisationCapacity(t *testing.T) {
	org := &Organisation{MaxCapacity: 10, CurrentCapacity: 8}
	assert.True(t, org.HasCapacity())
	assert.InDelta(t, 0.2, org.FreeCapacityFraction(), 1e-9)

	full := &Organisation{MaxCapacity: 10, CurrentCapacity: 10}
	assert.False(t, full.HasCapacity())
	assert.Zero(t, full.FreeCapacityFraction())
}
