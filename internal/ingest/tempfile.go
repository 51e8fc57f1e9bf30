package ingest

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"studyassist-backend/internal/shared/util"
)

// SaveTemp writes an uploaded file into dir under a collision-free name and
// returns its path. The caller owns removal.
func SaveTemp(dir string, fh *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	sanitized, err := util.SanitizeFileName(fh.Filename)
	if err != nil {
		return "", &Rejection{Code: CodeInvalidRequest, Message: "invalid file name"}
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%d-%s-%s",
		time.Now().UnixNano(),
		uuid.NewString()[:8],
		sanitized,
	)
	path := filepath.Join(dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// RemoveTemp deletes a temp file, logging nothing on success and tolerating
// a file that is already gone.
func RemoveTemp(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
