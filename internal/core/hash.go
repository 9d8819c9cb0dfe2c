package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Hash is an opaque content fingerprint tagged with its algorithm
// ("sha256:" + hex). Hashes compare by exact string equality.
type Hash string

// Equal reports exact equality of two prefixed hash values. No normalization
// is applied.
func (h Hash) Equal(other Hash) bool { return h == other }

func (h Hash) String() string { return string(h) }

// Short returns an abbreviated form for display ("sha256:" plus 12 hex chars).
func (h Hash) Short() string {
	const keep = len("sha256:") + 12
	if len(h) > keep {
		return string(h[:keep])
	}
	return string(h)
}

// HashConfig computes the deterministic content fingerprint of a config:
// SHA-256 over the UTF-8 bytes of its canonical JSON form, hex-encoded and
// prefixed "sha256:". Two logically identical configs hash identically
// regardless of key insertion order; an explicit null and an absent optional
// field canonicalize differently.
func HashConfig(cfg *AgentConfig) (Hash, error) {
	doc, err := configDocument(cfg)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, doc); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return Hash("sha256:" + fmt.Sprintf("%x", sum)), nil
}

// configDocument reduces a config to a generic JSON value via a marshal/decode
// round trip. Decoding with json.Number keeps numeric literals stable.
func configDocument(cfg *AgentConfig) (any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		// Only reachable for malformed in-memory values; a config decoded
		// from JSON always survives a marshal round trip.
		return nil, fmt.Errorf("canonicalizing config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("canonicalizing config: %w", err)
	}
	return doc, nil
}

// writeCanonical serializes a JSON value in canonical form: object keys in
// lexicographic order, array element order preserved, no insignificant
// whitespace, explicit null as the literal token.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		buf.WriteString(val.String())
	case string:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical form: unsupported value type %T", v)
	}
	return nil
}
