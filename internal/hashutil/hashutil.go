// Package hashutil implements the buffered content hash spec.md §4.5
// describes: hash a file while retaining its bytes in memory up to a
// fixed cap, so small files can be both hashed and written from the same
// single read pass.
package hashutil

import (
	"crypto/md5" //nolint:gosec // spec.md §6 mandates MD5 for manifest compatibility
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultChunkSize and DefaultMaxChunks reproduce spec.md §4.5's values:
// 1 MiB chunks, capped at 512 chunks (512 MiB retained in memory per file
// in flight).
const (
	DefaultChunkSize = 1 << 20
	DefaultMaxChunks = 512
)

// Result is the outcome of hashing a file: its hex digest, total size, and
// — if the whole file fit within chunkSize*maxChunks — its content as a
// sequence of chunk buffers, in order. Buffered is false once the cap is
// exceeded; from that point hashing continues but no bytes are retained.
type Result struct {
	Hex      string
	Size     int64
	Chunks   [][]byte
	Buffered bool
}

// HashFile streams path, computing its MD5 digest and retaining up to
// maxChunks chunks of chunkSize bytes each. If EOF is reached within the
// cap, Result.Buffered is true and Result.Chunks holds the full content;
// otherwise hashing continues to EOF without retaining further bytes.
func HashFile(path string, chunkSize, maxChunks int) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, errors.Wrapf(err, "open %q for hashing", path)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	var total int64
	var chunks [][]byte

	for len(chunks) < maxChunks {
		buf := make([]byte, chunkSize)
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			total += int64(n)
			h.Write(buf[:n])
			chunks = append(chunks, buf[:n])
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Result{Hex: hex.EncodeToString(h.Sum(nil)), Size: total, Chunks: chunks, Buffered: true}, nil
		}
		if err != nil {
			return Result{}, errors.Wrapf(err, "read %q while hashing", path)
		}
	}

	// Exceeded the cap: keep hashing but stop retaining bytes.
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			total += int64(n)
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, errors.Wrapf(err, "read %q while hashing", path)
		}
	}

	return Result{Hex: hex.EncodeToString(h.Sum(nil)), Size: total, Buffered: false}, nil
}
