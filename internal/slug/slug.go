// Package slug generates the public share tokens embedded in countdown
// URLs and distinguishes them from internal record IDs.
package slug

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(alphabet))

// Prefix marks a share token. Record IDs are UUIDs, so the two formats
// cannot collide.
const Prefix = "cd_"

const randomSuffixLen = 4

// New returns a fresh share token: the prefix, the current time in
// base62, and a short random suffix to break same-millisecond ties.
func New() string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(encode(uint64(time.Now().UnixMilli())))
	for range randomSuffixLen {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}

// IsRecordID reports whether the public-route identifier is a UUID and
// should be looked up by record ID instead of by slug.
func IsRecordID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// encode converts a number to base62.
func encode(num uint64) string {
	if num == 0 {
		return string(alphabet[0])
	}

	encoded := ""
	for num > 0 {
		remainder := num % base
		encoded = string(alphabet[remainder]) + encoded
		num = num / base
	}

	return encoded
}
