package hasher

import (
	"encoding/hex"
	"strings"
)

// Xxh3Prefix marks XXH3-64 digests in checksum lists so they can be told apart
// from XXH64, which has the same width.
const Xxh3Prefix = "XXH3_"

// Detect returns the families whose digests could render as s, most likely
// first. A 16-digit digest is ambiguous between xxh64 and xxh3 unless it
// carries Xxh3Prefix.
func Detect(s string) []string {
	t := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(t, Xxh3Prefix); ok {
		if len(rest) == 16 && isHex(rest) {
			return []string{"xxh3"}
		}
		return nil
	}
	if !isHex(t) {
		return nil
	}
	switch len(t) {
	case 8:
		return []string{"xxh32"}
	case 16:
		return []string{"xxh64", "xxh3"}
	case 32:
		return []string{"xxh128"}
	}
	return nil
}

func isHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
