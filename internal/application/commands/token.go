package commands

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// generateToken produces the opaque 32-char identifier used in public
// submission links, hashed from a timestamp plus random bytes so it
// cannot be guessed or enumerated.
func generateToken() string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	random := make([]byte, 16)
	_, _ = rand.Read(random)
	sum := sha256.Sum256([]byte(timestamp + "-" + hex.EncodeToString(random)))
	return hex.EncodeToString(sum[:])[:32]
}
