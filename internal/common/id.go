package common

import (
	"github.com/google/uuid"
)

// DefaultSessionID is used when a request names no session
const DefaultSessionID = "default"

// NewSessionID generates a unique session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}
