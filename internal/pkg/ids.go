package pkg

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

const sessionIDBytes = 32

// GenerateNewSessionID returns a url-safe random identity for a connection.
func GenerateNewSessionID() string {
	buf := make([]byte, sessionIDBytes)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(buf)

	return base64.RawURLEncoding.EncodeToString(buf)
}

func GenerateMatchID() string {
	return uuid.NewString()
}
