// Package utils provides utility functions and helpers for common operations
// used throughout the application. It includes error classification, response
// writing, validation, logging, token digests and data sanitization.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// HashToken returns the hex encoded SHA-256 digest of a token.
// Stores persist the digest so a leaked table or keyspace holds no usable tokens.
//
// Parameters:
//   - token: the signed token string
//
// Returns:
//   - a 64 character lowercase hex string
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsDuplicateKeyError checks if an error is a PostgreSQL unique constraint violation.
//
// Parameters:
//   - err: the error to check
//
// Returns:
//   - true if the error carries SQLSTATE 23505, false otherwise
func IsDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == constants.PGErrorDuplicateConstraint
	}
	return false
}

// TruncateString truncates a string to the given maximum length and adds ellipsis if necessary.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// MaskEmail masks the user part of an email address, showing only the first and last character.
//
// For example: "user@example.com" becomes "u**r@example.com"
//
// Parameters:
//   - email: the email address to mask
//
// Returns:
//   - the masked email address, or the original string if it's not a valid email format
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	user := parts[0]
	domain := parts[1]

	if len(user) <= 2 {
		return email
	}

	return string(user[0]) + strings.Repeat("*", len(user)-2) + string(user[len(user)-1]) + "@" + domain
}

// SanitizeKeys removes potentially sensitive fields from a map.
// It recursively traverses nested maps and slices of maps.
//
// Parameters:
//   - data: the map to sanitize
//
// Returns:
//   - a new map with sensitive values redacted
func SanitizeKeys(data map[string]interface{}) map[string]interface{} {
	sensitiveKeys := map[string]bool{
		constants.ColumnPasswordHash:        true,
		constants.ColumnSalt:                true,
		constants.ColumnEmailVerifyToken:    true,
		constants.ColumnForgotPasswordToken: true,
		constants.FieldRefreshToken:         true,
		"access_token":                      true,
		"password":                          true,
		"old_password":                      true,
		"confirm_password":                  true,
		"token":                             true,
		"secret":                            true,
	}

	result := make(map[string]interface{})

	for k, v := range data {
		if sensitiveKeys[strings.ToLower(k)] {
			result[k] = constants.LogRedactedValue
			continue
		}

		if nestedMap, ok := v.(map[string]interface{}); ok {
			result[k] = SanitizeKeys(nestedMap)
			continue
		}

		if nestedMapSlice, ok := v.([]map[string]interface{}); ok {
			sanitizedSlice := make([]map[string]interface{}, len(nestedMapSlice))
			for i, nestedMap := range nestedMapSlice {
				sanitizedSlice[i] = SanitizeKeys(nestedMap)
			}
			result[k] = sanitizedSlice
			continue
		}

		result[k] = v
	}

	return result
}

// ContainsString checks if a slice of strings contains a specific string.
func ContainsString(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}
