package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// RawArchive keeps the source of skipped messages so they can be replayed
// with process:eml.
type RawArchive struct {
	Dir string
}

func NewRawArchive(dir string) *RawArchive {
	return &RawArchive{Dir: dir}
}

// Save writes raw under provider/<sha256>.eml once and returns the path.
func (a *RawArchive) Save(provider string, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty message source")
	}
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(a.Dir, provider)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	rawPath := filepath.Join(dir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, raw, 0o644); err != nil {
			return "", err
		}
	}
	return rawPath, nil
}
