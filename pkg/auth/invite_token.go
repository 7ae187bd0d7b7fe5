package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Invite token layout. The full token is handed to the invitee once;
// only its digest and a short lookup prefix are stored.
const (
	InviteTokenLength = 64 // hex characters
	InviteTokenKeyLen = 8  // stored lookup prefix
)

// GenerateInviteToken creates a random 64-character hex invite token.
func GenerateInviteToken() (string, error) {
	b := make([]byte, InviteTokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashInviteToken returns the hex-encoded SHA-256 digest stored for a
// token.
func HashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// InviteTokenKey returns the short stored prefix used to reference a
// token in logs without revealing it.
func InviteTokenKey(token string) string {
	if len(token) < InviteTokenKeyLen {
		return token
	}
	return token[:InviteTokenKeyLen]
}
