package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

const userColumns = `id, username, full_name, password_hash, role, created_at, deleted_at`

// CreateUser creates a new user.
func CreateUser(ctx context.Context, database *sql.DB, username, fullName, passwordHash, role string) (*model.User, error) {
	result, err := database.ExecContext(ctx,
		`INSERT INTO users (username, full_name, password_hash, role) VALUES (?, ?, ?, ?)`,
		username, nullString(fullName), passwordHash, role,
	)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Integrity(err, "username %q is taken", username)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, database, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, database *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(database.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username, preferring the active
// account over soft-deleted ones with the same name.
func GetUserByUsername(ctx context.Context, database *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(database.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?
		 ORDER BY deleted_at IS NOT NULL, id DESC LIMIT 1`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, database *sql.DB) ([]model.User, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's display name and role.
func UpdateUser(ctx context.Context, database *sql.DB, id int64, fullName, role string) error {
	result, err := database.ExecContext(ctx,
		`UPDATE users SET full_name = ?, role = ? WHERE id = ? AND deleted_at IS NULL`,
		nullString(fullName), role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return requireRow(result, "user", id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, database *sql.DB, id int64, passwordHash string) error {
	result, err := database.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return requireRow(result, "user", id)
}

// DeleteUser soft-deletes a user. Users still holding assigned assets
// cannot be deleted.
func DeleteUser(ctx context.Context, database *sql.DB, id int64) error {
	return withTx(ctx, database, func(tx *sql.Tx) error {
		var open int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM assignments WHERE assignee_id = ? AND status != ?`,
			id, model.AssignmentReturned,
		).Scan(&open)
		if err != nil {
			return fmt.Errorf("checking open assignments: %w", err)
		}
		if open > 0 {
			return apperr.Integrity(nil, "cannot delete user %d: they still hold assigned assets", id)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now(), id,
		)
		if err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		return requireRow(result, "user", id)
	})
}

// CountUsers returns the number of active users.
func CountUsers(ctx context.Context, database *sql.DB) (int, error) {
	var n int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var fullName sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &fullName, &u.PasswordHash, &u.Role, &u.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	u.DeletedAt = scanNullTime(deletedAt)
	return u, nil
}
