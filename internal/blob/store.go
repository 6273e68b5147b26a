// Package blob stores payment-proof uploads and hands back opaque refs.
// Korpus deployment-nya single host, jadi cukup local disk; ref yg keluar
// tidak mengikat implementasi.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Store interface {
	Save(ctx context.Context, poolID, userID string, data []byte, contentType string) (ref string, err error)
}

type DiskStore struct{ Dir string }

func (s *DiskStore) Save(_ context.Context, poolID, userID string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty proof payload")
	}
	dir := filepath.Join(s.Dir, poolID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir proof dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s", userID, uuid.NewString(), extFor(contentType))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write proof: %w", err)
	}
	return filepath.Join(poolID, name), nil
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	}
	return ".bin"
}
