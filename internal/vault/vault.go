// Package vault holds the basket.Vault backends: in-memory, local filesystem
// and S3. All of them address archived snapshots by hex checksum and keep
// per-host metadata items (the database copy) with a version marker.
package vault

import (
	"fmt"
	"io"

	"basket-go/internal/basket"
)

// checkChecksum rejects anything that is not a full hex checksum. Backends use
// the checksum as a file name or object key.
func checkChecksum(checksum string) error {
	if _, err := basket.ParseChecksum(checksum); err != nil {
		return err
	}
	return nil
}

// readSized reads all of r and verifies it produced exactly size bytes.
func readSized(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}
