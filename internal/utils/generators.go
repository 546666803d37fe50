package utils

import (
	"crypto/rand"
	"fmt"
)

// GenerateCommissionCode returns a 14-character uppercase hex string
// (7 random bytes). Codes double as Mongo _id values, so uniqueness is
// re-checked against the store before use.
func GenerateCommissionCode() string {
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// nothing sensible to fall back to.
		panic(fmt.Sprintf("rand.Read: %v", err))
	}
	return fmt.Sprintf("%X", buf)
}
