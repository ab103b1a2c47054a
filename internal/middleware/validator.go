package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxClaimLength = 5000

var (
	chamberIDPattern = regexp.MustCompile(`^[a-z_]{1,32}$`)
	deviceIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// ValidateChamberID checks the shape of a chamber id; existence is checked by the registry.
func ValidateChamberID(id string) error {
	if !chamberIDPattern.MatchString(id) {
		return fmt.Errorf("invalid chamber id format")
	}
	return nil
}

// ValidateDeviceID validates device ID format
func ValidateDeviceID(device string) error {
	if device == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if !deviceIDPattern.MatchString(device) {
		return fmt.Errorf("invalid device ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateClaim bounds the claim size; the minimum is enforced by the checker.
func ValidateClaim(claim string) error {
	if utf8.RuneCountInString(claim) > MaxClaimLength {
		return fmt.Errorf("claim too long (max %d characters)", MaxClaimLength)
	}
	return nil
}

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("coordinates out of range")
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
