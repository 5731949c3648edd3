// Package storage publishes rendered pages and returns their public links.
package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Uploader publishes a local file under objectName and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// LocalUploader copies pages into a directory served by the notes server.
type LocalUploader struct {
	dir     string
	baseURL string
}

// NewLocalUploader creates a LocalUploader writing into dir. Links are
// <baseURL>/pages/<objectName>.
func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create page directory %s", dir)
	}
	return &LocalUploader{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the directory pages are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Upload implements Uploader.
func (u *LocalUploader) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if objectName == "" || objectName != filepath.Base(objectName) {
		return "", errors.Errorf("invalid object name %q", objectName)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open staged page")
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(u.dir, objectName))
	if err != nil {
		return "", errors.Wrap(err, "failed to create page")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", errors.Wrap(err, "failed to write page")
	}
	if err := dst.Close(); err != nil {
		return "", errors.Wrap(err, "failed to write page")
	}

	return u.baseURL + "/pages/" + url.PathEscape(objectName), nil
}
