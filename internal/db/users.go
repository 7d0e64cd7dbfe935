package db

import (
	"context"
	"database/sql"

	"github.com/Revology-Analytics/revify-portal/internal/models"
)

const userColumns = "id, name, email, password_hash, is_admin, status, created_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	var status string
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &status, &user.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	user.Status = models.UserStatus(status)
	return user, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := "INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := db.exec(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash,
		user.IsAdmin, string(user.Status), user.CreatedAt.UTC())
	return err
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	return scanUser(db.queryRow(ctx, query, email))
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	return scanUser(db.queryRow(ctx, query, id))
}

func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at"

	rows, err := db.query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// SearchUsers matches name or email case-insensitively.
func (db *DB) SearchUsers(ctx context.Context, searchTerm string) ([]models.User, error) {
	query := "SELECT " + userColumns + ` FROM users
		WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
		ORDER BY created_at`

	pattern := likePattern(searchTerm)
	rows, err := db.query(ctx, query, pattern, pattern)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (db *DB) SetUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	res, err := db.exec(ctx, "UPDATE users SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (db *DB) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	res, err := db.exec(ctx, "UPDATE users SET is_admin = ? WHERE id = ?", isAdmin, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
