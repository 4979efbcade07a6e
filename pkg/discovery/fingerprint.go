package discovery

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// InstanceIDFromHardware derives an instance id from a hardware address
// such as a MAC. Case and separators do not affect the result.
//
// The instance id is the first 64 bits (16 hex chars) of
// BLAKE2b-256(normalized address).
func InstanceIDFromHardware(addr string) string {
	norm := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.':
			return -1
		}
		return r
	}, strings.ToLower(addr))
	sum := blake2b.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:8])
}

// ValidateID checks if an ID string is a valid 64-bit fingerprint (16 hex chars).
func ValidateID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	return isHexString(id)
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
