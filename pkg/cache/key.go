package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key derives the cache key for one request. The text is NFKC-normalized
// and trimmed first so visually equivalent Unicode spellings share an
// entry; the role is part of the key because decisions are role-scoped.
func Key(text, role string) string {
	normalized := norm.NFKC.String(strings.TrimSpace(text))
	sum := md5.Sum([]byte(role + "\x00" + normalized))
	return "decision:" + hex.EncodeToString(sum[:])
}
