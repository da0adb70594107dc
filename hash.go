// Package soarmock holds the primitives shared by the mock SOAR platform:
// content hashes, container references and the artifact model.
package soarmock

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HashSize is the size of an MD5 hash in bytes (128 bits).
const HashSize = md5.Size

// ChunkSize is the read size used when streaming content through the hasher.
// Large attachments are never held in memory whole.
const ChunkSize = 8192

// Hash represents an MD5 digest. Its hex form is the vault id.
type Hash [HashSize]byte

// String returns the hex-encoded representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses a hex-encoded hash string, as produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return Hash{}, fmt.Errorf("invalid hash length: expected %d hex chars, got %d", HashSize*2, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("invalid hash: %w", err)
	}
	return h, nil
}

// HashBytes computes the MD5 hash of the given bytes.
func HashBytes(data []byte) Hash {
	return Hash(md5.Sum(data))
}

// HashReader computes the MD5 hash of content from the reader, reading
// ChunkSize bytes at a time. It returns the hash and the number of bytes read.
func HashReader(r io.Reader) (Hash, int64, error) {
	h := md5.New()
	buf := make([]byte, ChunkSize)
	// Hide any WriterTo/ReaderFrom so the chunk size is honoured.
	n, err := io.CopyBuffer(struct{ io.Writer }{h}, struct{ io.Reader }{r}, buf)
	if err != nil {
		return Hash{}, n, fmt.Errorf("hashing content: %w", err)
	}
	var hash Hash
	h.Sum(hash[:0])
	return hash, n, nil
}

// HashFile streams the file at path through HashReader.
func HashFile(path string) (Hash, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, 0, fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return HashReader(f)
}
