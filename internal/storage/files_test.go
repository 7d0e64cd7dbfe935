package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Revology-Analytics/revify-portal/internal/db"
	"github.com/Revology-Analytics/revify-portal/internal/logging"
	"github.com/Revology-Analytics/revify-portal/internal/models"
)

func newTestFiles(t *testing.T, maxSize int64) (*Files, string) {
	tempDir := t.TempDir()

	database, err := db.Init("sqlite3", filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	dir := filepath.Join(tempDir, "uploads")
	files, err := NewFiles(database, dir, maxSize, logging.Discard())
	require.NoError(t, err)
	return files, dir
}

func TestFiles_SaveAndOpen(t *testing.T) {
	files, dir := newTestFiles(t, 1024)
	ctx := context.Background()

	saved, err := files.Save(ctx, Upload{
		Name:   "../../etc/passwd",
		Type:   "text/plain",
		UserID: "user-1",
		Body:   strings.NewReader("hello"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.FilePending, saved.Status)
	assert.Equal(t, int64(5), saved.Size)
	assert.Equal(t, "/uploads/"+saved.ID, saved.URL)
	_, err = os.Stat(filepath.Join(dir, saved.ID))
	require.NoError(t, err)

	record, blob, err := files.Open(ctx, saved.ID)
	require.NoError(t, err)
	defer blob.Close()
	body, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "../../etc/passwd", record.Name)

	own, err := files.UserFiles(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestFiles_SaveTooLarge(t *testing.T) {
	files, dir := newTestFiles(t, 4)

	_, err := files.Save(context.Background(), Upload{
		Name: "big.txt", Type: "text/plain", UserID: "u", Body: strings.NewReader("12345"),
	})
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	all, err := files.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFiles_DeleteRemovesBlob(t *testing.T) {
	files, dir := newTestFiles(t, 1024)
	ctx := context.Background()

	saved, err := files.Save(ctx, Upload{Name: "a.txt", Type: "text/plain", UserID: "u", Body: strings.NewReader("x")})
	require.NoError(t, err)

	require.NoError(t, files.DeleteFile(ctx, saved.ID))
	_, err = os.Stat(filepath.Join(dir, saved.ID))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, files.DeleteFile(ctx, saved.ID), db.ErrNotFound)
}

func TestFiles_UpdateFileStatus(t *testing.T) {
	files, _ := newTestFiles(t, 1024)
	ctx := context.Background()

	saved, err := files.Save(ctx, Upload{Name: "a.txt", Type: "text/plain", UserID: "u", Body: strings.NewReader("x")})
	require.NoError(t, err)

	require.NoError(t, files.UpdateFileStatus(ctx, saved.ID, models.FileVerified))
	all, err := files.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.FileVerified, all[0].Status)
	assert.NotNil(t, all[0].VerifiedAt)
}
