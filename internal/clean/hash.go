package clean

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileHash computes the hex-encoded SHA-256 of the file at path. Used to
// detect re-ingestion of an unchanged source file.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// SynthesizeCode derives a stable service code for rows whose code cell is
// blank, hashing the row number and identifying cell values. The GEN- prefix
// keeps synthesized codes visually distinct from real tariff codes.
func SynthesizeCode(rowNum int64, values ...string) string {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(rowNum))
	h.Write(buf)
	for _, v := range values {
		h.Write([]byte(strings.TrimSpace(v)))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("GEN-%X", h.Sum(nil)[:6])
}
