package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateTenantID("clinic_a-1"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("clinic/a"))
	assert.Error(t, ValidateTenantID(strings.Repeat("a", 65)))

	assert.NoError(t, ValidatePatientID("MRN.0042-x"))
	assert.Error(t, ValidatePatientID("p 1"))

	assert.NoError(t, ValidateID("analysis", "3f1e2c1a-0b5d-4d7e-9a77-1c2b3d4e5f60"))
	assert.Error(t, ValidateID("analysis", "../etc"))
}

func TestClamps(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 7, ValidateLimit(7))
	assert.Equal(t, 1, ValidatePage(-3))
	assert.Equal(t, "a b", SanitizeString(" a\x00 b\x07 "))
}
