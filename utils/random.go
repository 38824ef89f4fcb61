package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/google/uuid"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateToken returns n random bytes as lowercase hex, suitable for bearer
// tokens.
func GenerateToken(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return hex.EncodeToString(byt), nil
}

// NewTicketCode returns a globally unique ticket identifier.
func NewTicketCode() string {
	return uuid.NewString()
}

// NewGuestUserID mints the user id for an attendee registering without an
// account.
func NewGuestUserID() string {
	return models.GuestUserPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
