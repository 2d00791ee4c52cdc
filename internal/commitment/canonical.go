// Package commitment implements the commitment and proof generator (C5).
// CanonicalizeJSON and the hashing helpers are adapted from the teacher's
// pkg/commitment package (an RFC8785-like deterministic JSON encoder); the
// canonical byte layout for the commitment digest itself follows §4.5.
package commitment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// CanonicalizeJSON returns a canonical re-encoding of raw JSON: map keys are
// sorted recursively, arrays retain order. Not a full RFC 8785 implementation
// (number formatting is left to encoding/json) but deterministic for the
// fixed-shape payloads this package hashes.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(canonicalizeValue(v))
}

func canonicalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			ordered[k] = canonicalizeValue(vv[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

// MarshalCanonical JSON-encodes v and canonicalizes the result.
func MarshalCanonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSON(raw)
}

// HashConcat returns the SHA-256 digest of the concatenation of parts, in
// order, with no delimiter — callers needing unambiguous framing must
// length-prefix before calling this.
func HashConcat(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashHex returns the hex-encoded SHA-256 digest of the concatenation of parts.
func HashHex(parts ...[]byte) string {
	d := HashConcat(parts...)
	return hex.EncodeToString(d[:])
}

// SortedDigests returns the sorted hex encodings of a set of 32-byte digests,
// used for the commitment's "sorted issue digests" / "sorted evidence refs"
// fields so encoding is order-independent of how issues were produced.
func SortedDigests(digests [][32]byte) []string {
	out := make([]string, len(digests))
	for i, d := range digests {
		out[i] = hex.EncodeToString(d[:])
	}
	sort.Strings(out)
	return out
}
