package task

import (
	"crypto/md5"
	"encoding/hex"
)

// hashPair computes the stable 128-bit digest spec.md §6 calls for, the
// same stdlib MD5 choice as agent.Key (the spec mandates no particular
// algorithm, only stability).
func hashPair(a, b string) string {
	sum := md5.Sum([]byte(a + "|" + b))
	return hex.EncodeToString(sum[:])
}
