package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Magic bytes for the accepted upload formats
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	riffMagic = []byte{0x52, 0x49, 0x46, 0x46} // WebP: RIFF....WEBP
	webpMagic = []byte{0x57, 0x45, 0x42, 0x50}
)

// ErrUnsupportedImage is returned when uploaded data is not JPEG, PNG or WebP
var ErrUnsupportedImage = fmt.Errorf("unsupported image format (expected JPEG, PNG or WebP)")

// BlobStore persists uploaded image blobs on disk and hands back opaque
// path references. Records store these paths, never the image bytes.
type BlobStore struct {
	dir string
}

// NewBlobStore creates the upload directory if needed
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Save sniffs the image type, writes the blob under a random name and
// returns its path
func (s *BlobStore) Save(kind string, data []byte) (string, error) {
	ext, err := sniffExtension(data)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s%s", kind, uuid.New().String(), ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return path, nil
}

// Remove deletes a stored blob; missing files are not an error
func (s *BlobStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sniffExtension(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return ".jpg", nil
	case bytes.HasPrefix(data, pngMagic):
		return ".png", nil
	case len(data) >= 12 && bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], webpMagic):
		return ".webp", nil
	default:
		return "", ErrUnsupportedImage
	}
}
