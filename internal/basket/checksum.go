package basket

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Checksum is the SHA-1 digest of a snapshot's canonical content.
type Checksum [sha1.Size]byte

// ComputeChecksum returns the checksum of canonical content.
func ComputeChecksum(content []byte) Checksum {
	return sha1.Sum(content)
}

// String returns the lowercase hex form of the checksum.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// Short returns the 7 character prefix used in CLI output.
func (c Checksum) Short() string {
	return c.String()[:7]
}

// IsZero reports whether the checksum is unset.
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// ParseChecksum parses a full 40 character hex checksum.
func ParseChecksum(s string) (Checksum, error) {
	var c Checksum
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("%w: invalid checksum %q: %v", ErrValidation, s, err)
	}
	if len(b) != len(c) {
		return c, fmt.Errorf("%w: checksum %q must be %d hex characters", ErrValidation, s, 2*len(c))
	}
	copy(c[:], b)
	return c, nil
}

// Canonicalize re-encodes a JSON value so that semantically identical inputs
// produce the same bytes: object keys sorted at every depth, 4-space indentation,
// no HTML escaping and no trailing newline. Numbers keep their literal form.
func Canonicalize(raw []byte) ([]byte, error) {
	v, err := decodeJSON(raw)
	if err != nil {
		return nil, err
	}
	return encodeCanonical(v)
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON value", ErrMalformedDocument)
	}
	return v, nil
}

func encodeCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding canonical JSON: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
