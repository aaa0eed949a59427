// Package canonhash computes deterministic digests over certificate field sets.
//
// Two mappings containing the same key/value pairs always hash to the same
// digest regardless of insertion order: field names are serialised in
// lexicographic order as canonical JSON before hashing. The digest is SHA-256,
// rendered as "0x" followed by 64 hex characters so it is recognisable as a
// hash at the ledger boundary. The all-zero digest is reserved as the
// "no commitment recorded" sentinel and is never produced by Sum.
package canonhash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Prefix distinguishes digest strings from other values at the ledger boundary.
const Prefix = "0x"

// Sentinel is the reserved zero digest meaning "no commitment recorded".
const Sentinel = Prefix + "0000000000000000000000000000000000000000000000000000000000000000"

// Sum returns the canonical digest of a field set. It is a pure function:
// no field ordering, whitespace, or encoding ambiguity survives into the
// hashed bytes.
func Sum(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, k)
		buf.WriteByte(':')
		writeJSONString(&buf, fields[k])
	}
	buf.WriteByte('}')

	sum := sha256.Sum256(buf.Bytes())
	return Prefix + hex.EncodeToString(sum[:])
}

// IsSentinel reports whether digest is the reserved zero digest.
func IsSentinel(digest string) bool {
	return digest == "" || digest == Sentinel
}

// writeJSONString appends the canonical JSON encoding of s.
// json.Marshal of a string cannot fail.
func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
