package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID generates a new UUID v4 string.
// UUID v4 uses random data and is the most common UUID type for general use.
func GenerateUUID() string {
	return uuid.New().String()
}

// IsValidUUID checks if a string is a valid UUID.
func IsValidUUID(uuidStr string) bool {
	_, err := uuid.Parse(uuidStr)
	return err == nil
}

// CanonicalUUID parses a UUID in any accepted form and returns its
// canonical lower-case hyphenated string.
func CanonicalUUID(uuidStr string) (string, error) {
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
