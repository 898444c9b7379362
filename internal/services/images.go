package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrImageType     = errors.New("only JPG, PNG, GIF and WEBP images are accepted")
	ErrImageTooLarge = errors.New("image must be at most 5 MB")
)

// MaxImageSize bounds a single product image upload.
const MaxImageSize = 5 << 20

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageStore keeps uploaded product images and hands back their public URL.
type ImageStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(url string) error
}

// DiskImageStore writes images under Dir and serves them below URLPrefix.
type DiskImageStore struct {
	Dir       string
	URLPrefix string
}

func NewDiskImageStore(dir string) (*DiskImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskImageStore{Dir: dir, URLPrefix: "/uploads/"}, nil
}

// Save stores the upload under a fresh uuid filename.
func (s *DiskImageStore) Save(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExt[ext] {
		return "", ErrImageType
	}
	if fh.Size > MaxImageSize {
		return "", ErrImageTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	filename := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.Dir, filename))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return s.URLPrefix + filename, nil
}

// Remove deletes an image previously returned by Save. URLs not owned by the
// store are ignored.
func (s *DiskImageStore) Remove(url string) error {
	if !strings.HasPrefix(url, s.URLPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, s.URLPrefix))
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
