package id

import "github.com/google/uuid"

// New returns a random identifier suitable for session and log correlation.
func New() string {
	return uuid.NewString()
}
