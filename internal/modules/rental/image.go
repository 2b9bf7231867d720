package rental

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"rentalhub/internal/storage"

	"go.uber.org/zap"
)

const DefaultMaxImageSize = 10 * 1024 * 1024 // 10 MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// storeImage sniffs and size-checks the upload, writes it to the file
// store and returns its reference path.
func (s *Service) storeImage(ctx context.Context, img *ImageFile) (string, error) {
	if s.maxImageSize > 0 && img.Size > s.maxImageSize {
		return "", ErrImageTooLarge
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(img.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if n == 0 {
		return "", ErrEmptyImage
	}
	head = head[:n]

	mimeType := strings.Split(http.DetectContentType(head), ";")[0]
	if !allowedImageTypes[mimeType] {
		return "", ErrInvalidImage
	}

	// the stored extension follows the sniffed type, never the client name
	name := "image" + mimeToExt(mimeType)

	var body io.Reader = io.MultiReader(bytes.NewReader(head), img.Content)
	if s.maxImageSize > 0 {
		body = &sizeLimitedReader{r: body, remaining: s.maxImageSize}
	}

	key, err := s.files.Save(ctx, name, body)
	if errors.Is(err, ErrImageTooLarge) {
		return "", ErrImageTooLarge
	}
	if err != nil {
		return "", err
	}
	return storage.RefFromKey(s.publicPrefix, key), nil
}

// removeImage deletes the file behind ref. Failures are logged, never
// returned.
func (s *Service) removeImage(ctx context.Context, ref string) {
	key, err := storage.KeyFromRef(s.publicPrefix, ref)
	if err != nil {
		s.log.Warn("skipping unresolvable image reference", zap.String("image", ref))
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete image", zap.String("key", key), zap.Error(err))
	}
}

// OpenImage streams a stored image by key.
func (s *Service) OpenImage(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.files.Open(ctx, key)
}

type sizeLimitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrImageTooLarge
	}
	return n, err
}

// imageContentType maps a stored key back to the type it was sniffed as.
func imageContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
