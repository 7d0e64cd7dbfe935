package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Revology-Analytics/revify-portal/internal/models"
)

const fileColumns = "id, name, mime_type, size, user_id, status, uploaded_at, verified_at, url"

func scanFile(row interface{ Scan(...interface{}) error }) (*models.UploadedFile, error) {
	file := &models.UploadedFile{}
	var (
		status     string
		verifiedAt sql.NullTime
	)
	err := row.Scan(&file.ID, &file.Name, &file.Type, &file.Size, &file.UserID,
		&status, &file.UploadedAt, &verifiedAt, &file.URL)
	if err != nil {
		return nil, translate(err)
	}
	file.Status = models.FileStatus(status)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		file.VerifiedAt = &t
	}
	return file, nil
}

func (db *DB) SaveFile(ctx context.Context, file *models.UploadedFile) error {
	query := "INSERT INTO files (" + fileColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var verifiedAt interface{}
	if file.VerifiedAt != nil {
		verifiedAt = file.VerifiedAt.UTC()
	}
	_, err := db.exec(ctx, query, file.ID, file.Name, file.Type, file.Size, file.UserID,
		string(file.Status), file.UploadedAt.UTC(), verifiedAt, file.URL)
	return err
}

func (db *DB) GetFile(ctx context.Context, id string) (*models.UploadedFile, error) {
	query := "SELECT " + fileColumns + " FROM files WHERE id = ?"
	return scanFile(db.queryRow(ctx, query, id))
}

// ListFiles returns every file, newest first.
func (db *DB) ListFiles(ctx context.Context) ([]models.UploadedFile, error) {
	query := "SELECT " + fileColumns + " FROM files ORDER BY uploaded_at DESC, id"

	rows, err := db.query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectFiles(rows)
}

func (db *DB) GetUserFiles(ctx context.Context, userID string) ([]models.UploadedFile, error) {
	query := "SELECT " + fileColumns + " FROM files WHERE user_id = ? ORDER BY uploaded_at DESC, id"

	rows, err := db.query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]models.UploadedFile, error) {
	defer rows.Close()

	files := []models.UploadedFile{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

func (db *DB) DeleteFile(ctx context.Context, id string) error {
	res, err := db.exec(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateFileStatus stores the new status. verified_at is stamped when the
// file becomes verified or rejected and left as is on reset to pending.
func (db *DB) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error {
	var (
		res sql.Result
		err error
	)
	if status == models.FileVerified || status == models.FileRejected {
		res, err = db.exec(ctx, "UPDATE files SET status = ?, verified_at = ? WHERE id = ?",
			string(status), time.Now().UTC(), id)
	} else {
		res, err = db.exec(ctx, "UPDATE files SET status = ? WHERE id = ?", string(status), id)
	}
	if err != nil {
		return err
	}
	return requireAffected(res)
}
