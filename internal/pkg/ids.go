package pkg

import "github.com/google/uuid"

// GenerateMatchID returns a new random match identifier.
func GenerateMatchID() string {
	return uuid.New().String()
}

// GenerateNewSessionID returns a new random session identifier for a connecting participant.
func GenerateNewSessionID() string {
	return uuid.New().String()
}
