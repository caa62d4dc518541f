// Package upload publishes run artifacts. Existing files are never
// overwritten; a collision moves on to name_v2, name_v3 and so on.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const maxVersions = 100

// Uploader stores the file at localPath under name and returns where it
// ended up.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

// VersionedName returns name for version 1 and inserts _v<n> before the
// extension otherwise.
func VersionedName(name string, version int) string {
	if version <= 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_v%d%s", strings.TrimSuffix(name, ext), version, ext)
}

// Local copies into a directory.
type Local struct {
	Dir string
}

func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

func (l *Local) Upload(ctx context.Context, localPath, name string) (string, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", err
	}
	for v := 1; v <= maxVersions; v++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		dest := filepath.Join(l.Dir, VersionedName(name, v))
		err := copyExclusive(localPath, dest)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("copy %s: %w", name, err)
		}
		return dest, nil
	}
	return "", fmt.Errorf("no free name for %s after %d versions", name, maxVersions)
}

func copyExclusive(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}
