package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session tokens are "<playerID>.<expiryUnix>.<hex HMAC-SHA256>" signed
// with the server secret. Stateless on purpose: verification needs no
// store round-trip, and expiry is embedded in the signed payload.

// Mint creates a signed session token for a player.
func Mint(secret string, playerID int64, ttl time.Duration) string {
	expiry := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%d.%d", playerID, expiry)
	return payload + "." + sign(secret, payload)
}

// Verify validates a token's signature and expiry, returning the player id.
func Verify(secret, token string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed token")
	}

	payload := parts[0] + "." + parts[1]
	expected := sign(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return 0, fmt.Errorf("signature mismatch")
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry: %w", err)
	}
	if time.Now().Unix() > expiry {
		return 0, fmt.Errorf("token expired")
	}

	playerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid player id: %w", err)
	}
	return playerID, nil
}

func sign(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
