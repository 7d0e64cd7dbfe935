// Package storage keeps uploaded file contents on disk next to their
// database records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/models"
)

var ErrTooLarge = errors.New("file exceeds maximum upload size")

// Records is the metadata side of the store.
type Records interface {
	SaveFile(ctx context.Context, file *models.UploadedFile) error
	GetFile(ctx context.Context, id string) (*models.UploadedFile, error)
	ListFiles(ctx context.Context) ([]models.UploadedFile, error)
	GetUserFiles(ctx context.Context, userID string) ([]models.UploadedFile, error)
	DeleteFile(ctx context.Context, id string) error
	UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error
}

type Files struct {
	records Records
	dir     string
	maxSize int64
	logger  *logrus.Entry
}

func NewFiles(records Records, dir string, maxSize int64, logger *logrus.Logger) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Files{
		records: records,
		dir:     dir,
		maxSize: maxSize,
		logger:  logger.WithField("component", "storage"),
	}, nil
}

// Blobs are named by file id, never by the client's filename.
func (f *Files) path(id string) string {
	return filepath.Join(f.dir, id)
}

type Upload struct {
	Name   string
	Type   string
	UserID string
	Body   io.Reader
}

// Save writes the body and records it as a pending file.
func (f *Files) Save(ctx context.Context, up Upload) (*models.UploadedFile, error) {
	id := uuid.NewString()
	blobPath := f.path(id)

	dst, err := os.OpenFile(blobPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create blob: %w", err)
	}

	// Read one byte past the limit to detect oversized bodies.
	n, err := io.Copy(dst, io.LimitReader(up.Body, f.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > f.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(blobPath)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("write blob: %w", err)
	}

	file := &models.UploadedFile{
		ID:         id,
		Name:       up.Name,
		Type:       up.Type,
		Size:       n,
		UserID:     up.UserID,
		Status:     models.FilePending,
		UploadedAt: time.Now().UTC(),
		URL:        "/uploads/" + id,
	}
	if err := f.records.SaveFile(ctx, file); err != nil {
		os.Remove(blobPath)
		return nil, fmt.Errorf("save file record: %w", err)
	}

	f.logger.WithFields(logrus.Fields{"file_id": id, "size": n, "user_id": up.UserID}).Info("file uploaded")
	return file, nil
}

// Open returns the record and an open handle to the contents.
func (f *Files) Open(ctx context.Context, id string) (*models.UploadedFile, *os.File, error) {
	file, err := f.records.GetFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	blob, err := os.Open(f.path(file.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return file, blob, nil
}

func (f *Files) ListFiles(ctx context.Context) ([]models.UploadedFile, error) {
	return f.records.ListFiles(ctx)
}

func (f *Files) UserFiles(ctx context.Context, userID string) ([]models.UploadedFile, error) {
	return f.records.GetUserFiles(ctx, userID)
}

func (f *Files) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error {
	return f.records.UpdateFileStatus(ctx, id, status)
}

// DeleteFile removes the record, then the contents. A blob that cannot be
// removed is logged and does not fail the delete.
func (f *Files) DeleteFile(ctx context.Context, id string) error {
	if err := f.records.DeleteFile(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(f.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.WithError(err).WithField("file_id", id).Warn("failed to remove file contents")
	}
	return nil
}
