package db

import "strings"

// IsUniqueViolation detects duplicate-key errors from common database
// drivers. Services map these onto their domain duplicate errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
