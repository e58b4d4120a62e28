package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tenantPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	patientPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)
	idPattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidatePatientID validates patient identifiers; dots are allowed for
// MRN-style ids.
func ValidatePatientID(patient string) error {
	if patient == "" {
		return fmt.Errorf("patient ID cannot be empty")
	}
	if !patientPattern.MatchString(patient) {
		return fmt.Errorf("invalid patient ID format (alphanumeric, dot, dash, underscore only, max 128 chars)")
	}
	return nil
}

// ValidateID validates scan and analysis ids
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid %s ID format", kind)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage clamps a 1-based page number.
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
